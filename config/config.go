package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Notifications NotificationsConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port             string
	GinMode          string
	AppEnv           string
	AllowedOrigins   []string
	MaxBodyBytes     int64
	RateLimitPerSec  float64
	RateLimitBurst   int
	ShutdownTimeout  time.Duration
	ReadWriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL           string
	MaxConns      int32
	MinConns      int32
	WorkOffline   bool
	CACertPath    string
	TLSServerName string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Enabled reports whether transition events are published to Redis
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type AuthConfig struct {
	JWTSecret        string
	JWTIssuer        string
	SessionTTLHours  int
	InternalAPIToken string
}

type NotificationsConfig struct {
	WebhookURL      string
	WebhookToken    string
	Timeout         time.Duration
	Attempts        uint
	RetryDelay      time.Duration
	DispatchTimeout time.Duration
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	TracingEnabled    bool
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8082")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://getmentor.dev,https://www.getmentor.dev")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("RATE_LIMIT_PER_SECOND", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DATABASE_CA_CERT_PATH", "certs/ca.crt")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_EVENTS_CHANNEL", "sessions.transitions")
	v.SetDefault("JWT_ISSUER", "getmentor-sessions")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("NOTIFY_WEBHOOK_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_WEBHOOK_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_WEBHOOK_RETRY_DELAY", "500ms")
	v.SetDefault("NOTIFY_DISPATCH_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "alloy:4318") // OTLP over HTTP
	v.SetDefault("O11Y_TRACING_ENABLED", true)
	v.SetDefault("O11Y_BE_SERVICE_NAME", "getmentor-sessions")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "getmentor-dev")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "getmentor-sessions")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:             v.GetString("PORT"),
			GinMode:          v.GetString("GIN_MODE"),
			AppEnv:           v.GetString("APP_ENV"),
			AllowedOrigins:   splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
			MaxBodyBytes:     v.GetInt64("MAX_BODY_BYTES"),
			RateLimitPerSec:  v.GetFloat64("RATE_LIMIT_PER_SECOND"),
			RateLimitBurst:   v.GetInt("RATE_LIMIT_BURST"),
			ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
			ReadWriteTimeout: v.GetDuration("HTTP_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			MaxConns:      v.GetInt32("DB_MAX_CONNS"),
			MinConns:      v.GetInt32("DB_MIN_CONNS"),
			WorkOffline:   v.GetBool("DB_WORK_OFFLINE"),
			CACertPath:    v.GetString("DATABASE_CA_CERT_PATH"),
			TLSServerName: v.GetString("DATABASE_TLS_SERVER_NAME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_EVENTS_CHANNEL"),
		},
		Auth: AuthConfig{
			JWTSecret:        v.GetString("JWT_SECRET"),
			JWTIssuer:        v.GetString("JWT_ISSUER"),
			SessionTTLHours:  v.GetInt("SESSION_TTL_HOURS"),
			InternalAPIToken: v.GetString("INTERNAL_API_TOKEN"),
		},
		Notifications: NotificationsConfig{
			WebhookURL:      v.GetString("NOTIFY_WEBHOOK_URL"),
			WebhookToken:    v.GetString("NOTIFY_WEBHOOK_TOKEN"),
			Timeout:         v.GetDuration("NOTIFY_WEBHOOK_TIMEOUT"),
			Attempts:        v.GetUint("NOTIFY_WEBHOOK_ATTEMPTS"),
			RetryDelay:      v.GetDuration("NOTIFY_WEBHOOK_RETRY_DELAY"),
			DispatchTimeout: v.GetDuration("NOTIFY_DISPATCH_TIMEOUT"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			TracingEnabled:    v.GetBool("O11Y_TRACING_ENABLED"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList parses a comma-separated value, dropping blanks
func splitList(value string) []string {
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if !c.Database.WorkOffline && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when not in offline mode")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.InternalAPIToken == "" {
		return fmt.Errorf("INTERNAL_API_TOKEN is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
