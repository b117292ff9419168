// Package client implements the end-to-end task pipeline: a Scheduler
// that fetches task bundles from a remote queue, a pool of Executors
// that run them as child shell processes, and a Collector that returns
// completed bundles, all wired through two bounded local queues and
// shut down in a fixed, deterministic order.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/shellq/client/collector"
	"github.com/shellq/client/executor"
	"github.com/shellq/client/lifecycle"
	"github.com/shellq/client/queue"
	"github.com/shellq/client/remote"
	"github.com/shellq/client/scheduler"
	"github.com/shellq/client/task"
)

const (
	sentinelPutTimeout = 5 * time.Second
)

// Coordinator owns one run of the task pipeline. It is built once by New
// or NewOptions and its Run method is meant to be called exactly once.
type Coordinator struct {
	cfg      Config
	endpoint remote.Endpoint

	inbound  *queue.Queue[*task.Task]
	outbound *queue.Queue[*task.Task]

	sched *scheduler.Scheduler
	execs []*executor.Executor
	coll  *collector.Collector

	mu      sync.Mutex
	started bool
}

// New dials the configured remote endpoint and assembles a Coordinator
// from cfg. A nil cfg uses every default.
func New(cfg *Config) (*Coordinator, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	endpoint, err := remote.NewTCPEndpoint(context.Background(), c.Host, c.Port, c.Auth)
	if err != nil {
		return nil, err
	}
	return newCoordinator(c, endpoint), nil
}

// NewWithEndpoint assembles a Coordinator over an already-constructed
// Endpoint, bypassing the dial step. This is how tests drive the
// pipeline over remote.MemEndpoint.
func NewWithEndpoint(cfg Config, endpoint remote.Endpoint) (*Coordinator, error) {
	merged := defaultConfig()
	zero := Config{}
	if cfg != zero {
		merged = cfg
	}
	if err := validateConfig(&merged); err != nil {
		return nil, err
	}
	return newCoordinator(merged, endpoint), nil
}

func newCoordinator(cfg Config, endpoint remote.Endpoint) *Coordinator {
	log := cfg.Logger
	inbound := queue.New[*task.Task](int(cfg.BundleSize))
	outbound := queue.New[*task.Task](int(cfg.BundleSize))

	sched := scheduler.New(endpoint, inbound, log.WithField("component", "scheduler"), cfg.MetricsProvider)

	execs := make([]*executor.Executor, cfg.NumTasks)
	for i := range execs {
		slot := i + 1
		execCfg := executor.Config{Slot: slot, Template: cfg.Template, KillGrace: cfg.KillGrace}
		execLog := log.WithField("component", "executor").WithField("slot", slot)
		execs[i] = executor.New(execCfg, inbound, outbound, execLog, cfg.MetricsProvider)
	}

	coll := collector.New(endpoint, outbound, int(cfg.BundleSize), cfg.BundleWait, log.WithField("component", "collector"), cfg.MetricsProvider)

	return &Coordinator{cfg: cfg, endpoint: endpoint, inbound: inbound, outbound: outbound, sched: sched, execs: execs, coll: coll}
}

// Run drives the pipeline until the server disconnects (normal
// shutdown) or any stage reports a fatal error (abnormal shutdown,
// which cancels every other stage immediately). Either way the
// sequence is the same: await the Scheduler, release the Executor pool
// and await it, release the Collector and await it, then publish the
// terminal task id (only on a clean run) and release the endpoint
// (always).
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	halt := lifecycle.NewHaltForwarder(cancel)

	schedDone := make(chan error, 1)
	execDone := make(chan error, len(c.execs))
	collDone := make(chan error, 1)

	// Each stage reports its outcome as soon as it finishes, so the first
	// failure cancels runCtx for every other stage without waiting for
	// the ordered joins below.
	go func() { err := c.sched.Run(runCtx); halt.Report(err); schedDone <- err }()
	for _, ex := range c.execs {
		ex := ex
		go func() { err := ex.Run(runCtx); halt.Report(err); execDone <- err }()
	}
	go func() { err := c.coll.Run(runCtx); halt.Report(err); collDone <- err }()

	halt.Report(<-schedDone)

	releaseSentinels(runCtx, c.inbound, len(c.execs))
	for range c.execs {
		err := <-execDone
		if err != nil {
			entry := c.cfg.Logger.WithError(err)
			if id, ok := ExtractTaskID(err); ok {
				entry = entry.WithField("task_id", id)
			}
			if slot, ok := ExtractSlot(err); ok {
				entry = entry.WithField("slot", slot)
			}
			entry.Error("executor stage failed")
		}
		halt.Report(err)
	}

	releaseSentinels(runCtx, c.outbound, 1)
	halt.Report(<-collDone)

	release := lifecycle.NewSequencedClose(func() { _ = c.endpoint.Close() })

	if err := halt.Err(); err != nil {
		release.Run()
		return err
	}

	if err := c.endpoint.PutTerminator(ctx, c.sched.FinalTaskID()); err != nil {
		release.Run()
		return err
	}

	release.Run()
	return nil
}

// releaseSentinels pushes n nil sentinels onto q, one per consumer,
// tolerating a temporarily full queue (consumers drain real work ahead
// of the sentinel) but never blocking past ctx cancellation.
func releaseSentinels(ctx context.Context, q *queue.Queue[*task.Task], n int) {
	for i := 0; i < n; i++ {
		for {
			err := q.Put(ctx, nil, sentinelPutTimeout)
			if err == nil || ctx.Err() != nil {
				break
			}
		}
	}
}
