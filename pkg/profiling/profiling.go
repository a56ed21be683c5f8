package profiling

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/getmentor/getmentor-sessions/config"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

const (
	defaultApplication    = "getmentor-sessions"
	defaultUploadInterval = 15 * time.Second

	// sampling rates applied while mutex/block profiles are collected
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

// sampleKinds maps O11Y_PROFILING_SAMPLE_TYPES entries to pyroscope profile types,
// in the order they are reported
var sampleKinds = []struct {
	name  string
	types []pyroscope.ProfileType
}{
	{"cpu", []pyroscope.ProfileType{pyroscope.ProfileCPU}},
	{"alloc_space", []pyroscope.ProfileType{pyroscope.ProfileAllocSpace}},
	{"alloc_objects", []pyroscope.ProfileType{pyroscope.ProfileAllocObjects}},
	{"goroutines", []pyroscope.ProfileType{pyroscope.ProfileGoroutines}},
	{"mutex", []pyroscope.ProfileType{pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration}},
	{"block", []pyroscope.ProfileType{pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration}},
}

// samples is the parsed sample selection
type samples struct {
	types []pyroscope.ProfileType
	mutex bool
	block bool
}

// parseSamples reads a comma-separated selection; blank selects everything
func parseSamples(value string) (samples, error) {
	wanted := make(map[string]bool)
	for _, raw := range strings.Split(value, ",") {
		if key := strings.ToLower(strings.TrimSpace(raw)); key != "" {
			wanted[key] = true
		}
	}

	var out samples
	for _, kind := range sampleKinds {
		if len(wanted) > 0 && !wanted[kind.name] {
			continue
		}
		delete(wanted, kind.name)
		out.types = append(out.types, kind.types...)
		out.mutex = out.mutex || kind.name == "mutex"
		out.block = out.block || kind.name == "block"
	}

	for key := range wanted {
		return samples{}, fmt.Errorf("unsupported O11Y_PROFILING_SAMPLE_TYPES value: %q", key)
	}
	return out, nil
}

// serviceTags labels profiles the same way traces are labelled; empty values are left out
func serviceTags(o11y config.ObservabilityConfig, environment string) map[string]string {
	tags := map[string]string{
		"service_name":    o11y.ServiceName,
		"namespace":       o11y.ServiceNamespace,
		"environment":     environment,
		"service_version": o11y.ServiceVersion,
		"instance":        o11y.ServiceInstanceID,
	}
	for k, v := range tags {
		if strings.TrimSpace(v) == "" {
			delete(tags, k)
		}
	}
	return tags
}

func applicationName(cfg config.ProfilingConfig, o11y config.ObservabilityConfig) string {
	for _, name := range []string{cfg.AppName, o11y.ServiceName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return defaultApplication
}

// zapAdapter routes pyroscope client logs into the service logger
type zapAdapter struct{}

func (zapAdapter) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}

func (zapAdapter) Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}

func (zapAdapter) Errorf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}

// InitProfiler starts continuous profiling and returns its stop function.
// Profiles carry the same service labels as traces.
func InitProfiler(cfg config.ProfilingConfig, o11y config.ObservabilityConfig, environment string) (func(), error) {
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return func() {}, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}

	selected, err := parseSamples(cfg.SampleTypes)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.UploadIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultUploadInterval
	}

	// mutex and block profiles are empty unless the runtime samples them
	if selected.mutex {
		runtime.SetMutexProfileFraction(mutexProfileFraction)
	}
	if selected.block {
		runtime.SetBlockProfileRate(blockProfileRate)
	}

	name := applicationName(cfg, o11y)
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: name,
		ServerAddress:   endpoint,
		Tags:            serviceTags(o11y, environment),
		UploadRate:      interval,
		ProfileTypes:    selected.types,
		Logger:          zapAdapter{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}

	logger.Info("Continuous profiling initialized",
		zap.String("application_name", name),
		zap.String("endpoint", endpoint),
		zap.Int("profile_types", len(selected.types)),
		zap.Duration("upload_interval", interval),
	)

	return func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Error("Failed to stop profiler", zap.Error(stopErr))
		}
		if selected.mutex {
			runtime.SetMutexProfileFraction(0)
		}
		if selected.block {
			runtime.SetBlockProfileRate(0)
		}
	}, nil
}
