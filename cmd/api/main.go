package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/getmentor/getmentor-sessions/config"
	"github.com/getmentor/getmentor-sessions/internal/database/postgres"
	"github.com/getmentor/getmentor-sessions/internal/handlers"
	"github.com/getmentor/getmentor-sessions/internal/middleware"
	"github.com/getmentor/getmentor-sessions/internal/notify"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/getmentor/getmentor-sessions/pkg/db"
	"github.com/getmentor/getmentor-sessions/pkg/httpclient"
	"github.com/getmentor/getmentor-sessions/pkg/jwt"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/getmentor/getmentor-sessions/pkg/profiling"
	"github.com/getmentor/getmentor-sessions/pkg/tracing"
)

// registerParticipantRoutes registers the mentor/mentee surface behind the session token
func registerParticipantRoutes(
	group *gin.RouterGroup,
	requestHandler *handlers.RequestHandler,
	sessionHandler *handlers.SessionHandler,
) {
	group.GET("/requests", requestHandler.ListRequests)
	group.GET("/requests/:id", requestHandler.GetRequest)
	group.POST("/requests/:id/accept", requestHandler.Accept)
	group.POST("/requests/:id/reject", requestHandler.Reject)
	group.POST("/requests/:id/review", requestHandler.PutToReview)
	group.POST("/requests/:id/confirm", requestHandler.Confirm)
	group.PUT("/requests/:id/meeting-link", requestHandler.SetMeetingLink)

	group.GET("/sessions", sessionHandler.ListSessions)
	group.GET("/sessions/:id", sessionHandler.GetSession)
	group.PATCH("/sessions/:id", sessionHandler.UpdateSession)
	group.PUT("/sessions/:id/feedback", sessionHandler.AttachFeedback)
}

// openStore returns the backing store and a cleanup func
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.WorkOffline {
		logger.Warn("DB_WORK_OFFLINE is set: using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:           cfg.Database.URL,
		MaxConns:      cfg.Database.MaxConns,
		MinConns:      cfg.Database.MinConns,
		CACertPath:    cfg.Database.CACertPath,
		TLSServerName: cfg.Database.TLSServerName,
	})
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewClient(pool), func() { db.Close(pool) }, nil
}

// buildNotifier fans out to every configured sink. Delivery runs off the request path.
func buildNotifier(cfg *config.Config) (*notify.Async, func()) {
	var sinks notify.Multi
	cleanup := func() {}

	if cfg.Notifications.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:      cfg.Notifications.WebhookURL,
			Token:    cfg.Notifications.WebhookToken,
			Attempts: cfg.Notifications.Attempts,
			Delay:    cfg.Notifications.RetryDelay,
		}, httpclient.NewStandardClient(cfg.Notifications.Timeout)))
		logger.Info("Webhook notifications enabled")
	}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sinks = append(sinks, notify.NewRedisNotifier(rdb, cfg.Redis.Channel))
		cleanup = func() {
			if err := rdb.Close(); err != nil {
				logger.Error("Failed to close redis client", zap.Error(err))
			}
		}
		logger.Info("Redis notifications enabled", zap.String("channel", cfg.Redis.Channel))
	}

	if len(sinks) == 0 {
		logger.Warn("No notification sinks configured; transition events are dropped")
		return notify.NewAsync(notify.NopNotifier{}, cfg.Notifications.DispatchTimeout), cleanup
	}
	return notify.NewAsync(sinks, cfg.Notifications.DispatchTimeout), cleanup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting GetMentor Sessions API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	tracingEndpoint := ""
	if cfg.Observability.TracingEnabled {
		tracingEndpoint = cfg.Observability.ExporterEndpoint
	}
	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          tracingEndpoint,
		Insecure:          true,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	metrics.RecordInfrastructureMetrics()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(rootCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	notifier, closeNotifier := buildNotifier(cfg)
	defer closeNotifier()

	clock := services.Clock(time.Now)
	requestService := services.NewRequestService(store, nil, clock)
	lifecycleService := services.NewRequestLifecycleService(store, services.NewSessionMaterializer(nil, clock), notifier, clock)
	meetingService := services.NewMeetingChannelService(store, notifier, clock)
	sessionService := services.NewSessionService(store, notifier, clock)

	tokenManager := jwt.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.SessionTTLHours)

	requestHandler := handlers.NewRequestHandler(requestService, lifecycleService, meetingService)
	sessionHandler := handlers.NewSessionHandler(sessionService, time.Now)
	internalHandler := handlers.NewInternalHandler(requestService)
	healthHandler := handlers.NewHealthHandler(store.Ping)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.InternalTokenHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // participant session cookie
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.BodySizeLimitMiddleware(cfg.Server.MaxBodyBytes))

	rateLimiter := middleware.NewRateLimiter(rootCtx, rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	api := router.Group("/api")
	api.GET("/healthcheck", healthHandler.Healthcheck)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", rateLimiter.Middleware())
	v1.POST("/internal/requests", middleware.InternalAPIAuthMiddleware(cfg.Auth.InternalAPIToken), internalHandler.CreateRequest)
	registerParticipantRoutes(v1.Group("", middleware.ParticipantSessionMiddleware(tokenManager)), requestHandler, sessionHandler)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.Server.ReadWriteTimeout,
		WriteTimeout:      cfg.Server.ReadWriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := notifier.Close(ctx); err != nil {
		logger.Warn("Pending notifications abandoned", zap.Error(err))
	}

	logger.Info("Server exited")
}
