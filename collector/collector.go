// Package collector implements the Collector finite-state machine: it
// pulls finished tasks from the local outbound queue, batches them by
// size-or-time policy, and returns bundles to the remote queue.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellq/client/fsm"
	"github.com/shellq/client/metrics"
	"github.com/shellq/client/queue"
	"github.com/shellq/client/remote"
	"github.com/shellq/client/task"
)

const getLocalTimeout = time.Second

const (
	stateStart fsm.State = iota
	stateGetLocal
	stateCheckBundle
	statePackBundle
	statePutRemote
	stateFinalize
	stateHalt
)

// Collector owns no field accessed from outside its own Run goroutine.
type Collector struct {
	endpoint   remote.Endpoint
	outbound   *queue.Queue[*task.Task]
	log        *logrus.Entry
	metrics    metrics.Provider
	bundleSize int
	bundleWait time.Duration

	pending      []task.Task
	bundle       task.Bundle
	previousSend time.Time

	err error
}

// New constructs a Collector. bundleSize is the size-triggered flush
// threshold (>=1); bundleWait is the time-triggered flush interval
// (>=0, measured from the last successful flush).
func New(endpoint remote.Endpoint, outbound *queue.Queue[*task.Task], bundleSize int, bundleWait time.Duration, log *logrus.Entry, mp metrics.Provider) *Collector {
	if bundleSize < 1 {
		bundleSize = 1
	}
	return &Collector{endpoint: endpoint, outbound: outbound, bundleSize: bundleSize, bundleWait: bundleWait, log: log, metrics: mp}
}

// Run drives the Collector until it receives the null sentinel on
// outbound, then flushes any residual tasks. If ctx is cancelled first,
// Run stops without returning the residual tasks.
func (c *Collector) Run(ctx context.Context) error {
	table := fsm.Table{
		stateStart:       c.start,
		stateGetLocal:    c.getLocal,
		stateCheckBundle: c.checkBundle,
		statePackBundle:  c.packBundle,
		statePutRemote:   c.putRemote,
		stateFinalize:    c.finalize,
	}
	fsm.Run(ctx, table, stateStart, stateHalt)
	return c.err
}

func (c *Collector) start(context.Context) fsm.State {
	c.log.Debug("started collector")
	c.previousSend = time.Now()
	return stateGetLocal
}

func (c *Collector) getLocal(ctx context.Context) fsm.State {
	t, err := c.outbound.Get(ctx, getLocalTimeout)
	switch {
	case errors.Is(err, queue.ErrEmpty):
		return stateCheckBundle
	case err != nil:
		c.err = err
		return stateFinalize
	case t == nil:
		return stateFinalize
	default:
		c.pending = append(c.pending, *t)
		return stateCheckBundle
	}
}

func (c *Collector) checkBundle(context.Context) fsm.State {
	sinceLast := time.Since(c.previousSend)
	switch {
	case len(c.pending) >= c.bundleSize:
		c.log.WithField("pending", len(c.pending)).Trace("bundle size reached")
		return statePackBundle
	case sinceLast >= c.bundleWait:
		c.log.WithField("elapsed", sinceLast).Trace("wait time exceeded")
		return statePackBundle
	default:
		return stateGetLocal
	}
}

func (c *Collector) packBundle(context.Context) fsm.State {
	bundle, err := task.PackBundle(c.pending)
	if err != nil {
		c.err = err
		return stateFinalize
	}
	c.bundle = bundle
	return statePutRemote
}

func (c *Collector) putRemote(ctx context.Context) fsm.State {
	if len(c.bundle) > 0 {
		if err := c.endpoint.PutCompleted(ctx, c.bundle); err != nil {
			c.err = err
			return stateFinalize
		}
		c.log.WithField("count", len(c.bundle)).Trace("returned bundle")
		c.metrics.Counter("collector_tasks_returned").Add(int64(len(c.bundle)))
		c.metrics.Histogram("collector_bundle_size").Record(float64(len(c.bundle)))
		c.pending = nil
		c.bundle = nil
		c.previousSend = time.Now()
	} else {
		c.log.Trace("no local tasks to return")
	}
	return stateGetLocal
}

func (c *Collector) finalize(ctx context.Context) fsm.State {
	c.packBundle(ctx)
	if c.err == nil {
		c.putRemote(ctx)
	}
	c.log.Debug("stopping collector")
	return stateHalt
}
