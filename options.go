package client

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellq/client/metrics"
)

// Option configures a Coordinator. Use NewOptions(opts...) to
// construct one via options, or New(cfg) to pass an assembled
// Config directly.
type Option func(*Config)

// WithNumTasks sets the number of executor slots.
func WithNumTasks(n uint) Option {
	return func(c *Config) { c.NumTasks = n }
}

// WithBundleSize sets the Collector's size-triggered flush threshold.
func WithBundleSize(n uint) Option {
	return func(c *Config) { c.BundleSize = n }
}

// WithBundleWait sets the Collector's time-triggered flush interval.
func WithBundleWait(d time.Duration) Option {
	return func(c *Config) { c.BundleWait = d }
}

// WithAddress sets the server host and port.
func WithAddress(host string, port int) Option {
	return func(c *Config) { c.Host = host; c.Port = port }
}

// WithAuth sets the shared secret used to authenticate with the server.
func WithAuth(auth string) Option {
	return func(c *Config) { c.Auth = auth }
}

// WithTemplate sets the command-line template substituted with each
// task's raw argument string.
func WithTemplate(template string) Option {
	return func(c *Config) { c.Template = template }
}

// WithKillGrace enables SIGTERM escalation for children still running
// this long after their task started.
func WithKillGrace(d time.Duration) Option {
	return func(c *Config) { c.KillGrace = d }
}

// WithMetricsProvider sets the metrics.Provider instrumentation is
// recorded on.
func WithMetricsProvider(p metrics.Provider) Option {
	return func(c *Config) { c.MetricsProvider = p }
}

// WithLogger sets the logrus.Logger every stage logs through.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewOptions assembles a Config from functional options over the
// defaults and constructs a Coordinator from it.
func NewOptions(opts ...Option) (*Coordinator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return New(&cfg)
}
