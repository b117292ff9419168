package client

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellq/client/metrics"
)

// DefaultTemplate is the command template used when none is configured:
// the raw argument string is run verbatim.
const DefaultTemplate = "{}"

// Config holds every knob enumerated in the client's external
// interface: executor count, outbound batching policy, server address
// and credentials, and the command template.
type Config struct {
	// NumTasks is the number of executor slots run in parallel.
	// Default: 1.
	NumTasks uint

	// BundleSize is the outbound batch threshold: the Collector flushes
	// once it holds this many finished tasks. Default: 1.
	BundleSize uint

	// BundleWait is the outbound flush interval: the Collector flushes
	// whenever this much time has elapsed since its last flush, even if
	// BundleSize has not been reached. Default: 0 (flush every cycle).
	BundleWait time.Duration

	// Host and Port address the remote queue endpoint.
	Host string
	Port int

	// Auth is the shared secret (128-bit, hex-encoded) used to
	// authenticate with the server.
	Auth string

	// Template is the command-line pattern substituted with each task's
	// raw argument string at every `{}` occurrence. Default: "{}".
	Template string

	// KillGrace, when positive, sends SIGTERM to a child that is still
	// running this long after its task started; the executor keeps
	// waiting for the child's actual exit. Zero (default) disables
	// escalation: the coordinator waits for children to exit naturally.
	KillGrace time.Duration

	// MetricsProvider receives pipeline instrumentation. Default: a
	// no-op provider.
	MetricsProvider metrics.Provider

	// Logger receives structured log output from every stage. Default:
	// logrus's standard logger.
	Logger *logrus.Logger
}

// defaultConfig centralizes every default value, applied by both New
// (when cfg is nil) and NewOptions (the options builder's base).
func defaultConfig() Config {
	return Config{
		NumTasks:        1,
		BundleSize:      1,
		BundleWait:      0,
		Host:            "127.0.0.1",
		Port:            8080,
		Template:        DefaultTemplate,
		MetricsProvider: metrics.NewNoopProvider(),
		Logger:          logrus.StandardLogger(),
	}
}

// validateConfig checks the invariants the configuration knobs must
// satisfy: NumTasks and BundleSize must be at least 1, BundleWait must
// be non-negative.
func validateConfig(cfg *Config) error {
	switch {
	case cfg.NumTasks < 1:
		return ErrInvalidConfig
	case cfg.BundleSize < 1:
		return ErrInvalidConfig
	case cfg.BundleWait < 0:
		return ErrInvalidConfig
	case cfg.MetricsProvider == nil:
		return ErrInvalidConfig
	case cfg.Logger == nil:
		return ErrInvalidConfig
	default:
		return nil
	}
}
