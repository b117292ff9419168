// Package scheduler implements the Scheduler finite-state machine:
// it receives bundles from the remote queue and pushes individual tasks
// onto the local inbound queue for the executor pool to pick up.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellq/client/metrics"
	"github.com/shellq/client/queue"
	"github.com/shellq/client/remote"
	"github.com/shellq/client/task"

	"github.com/shellq/client/fsm"
)

const (
	remoteTimeout = 2 * time.Second
	localTimeout  = 2 * time.Second
)

const (
	stateStart fsm.State = iota
	stateGetRemote
	stateUnpack
	statePopTask
	statePutLocal
	stateHalt
)

// Scheduler owns no field accessed from outside its own Run goroutine;
// it is safe to construct once and run exactly once.
type Scheduler struct {
	endpoint remote.Endpoint
	inbound  *queue.Queue[*task.Task]
	log      *logrus.Entry
	metrics  metrics.Provider

	bundle      task.Bundle
	tasks       []task.Task
	current     task.Task
	finalTaskID string

	err error
}

// New constructs a Scheduler. inbound is the bounded queue the executor
// pool drains.
func New(endpoint remote.Endpoint, inbound *queue.Queue[*task.Task], log *logrus.Entry, mp metrics.Provider) *Scheduler {
	return &Scheduler{endpoint: endpoint, inbound: inbound, log: log, metrics: mp}
}

// Run drives the Scheduler until the server disconnects (the null
// sentinel) or ctx is cancelled. It returns a non-nil error only for
// protocol violations or endpoint failures that are fatal to the
// client.
func (s *Scheduler) Run(ctx context.Context) error {
	table := fsm.Table{
		stateStart:     s.start,
		stateGetRemote: s.getRemote,
		stateUnpack:    s.unpack,
		statePopTask:   s.popTask,
		statePutLocal:  s.putLocal,
	}
	fsm.Run(ctx, table, stateStart, stateHalt)
	return s.err
}

// FinalTaskID returns the id of the last task of the last non-null
// bundle received from the server. Only meaningful after Run returns.
func (s *Scheduler) FinalTaskID() string { return s.finalTaskID }

func (s *Scheduler) start(_ context.Context) fsm.State {
	s.log.Debug("started scheduler")
	return stateGetRemote
}

func (s *Scheduler) getRemote(ctx context.Context) fsm.State {
	bundle, err := s.endpoint.GetScheduled(ctx, remoteTimeout)
	switch {
	case errors.Is(err, remote.ErrTimeout):
		return stateGetRemote
	case err != nil:
		s.log.WithError(err).Error("scheduler: remote endpoint failure")
		s.err = err
		return stateHalt
	case bundle == nil:
		s.log.Debug("received disconnect")
		return stateHalt
	default:
		s.log.WithField("count", len(bundle)).Debug("received task bundle from server")
		s.bundle = bundle
		return stateUnpack
	}
}

func (s *Scheduler) unpack(context.Context) fsm.State {
	tasks, err := task.UnpackBundle(s.bundle)
	if err != nil {
		s.log.WithError(err).Error("scheduler: failed to unpack bundle")
		s.err = err
		return stateHalt
	}
	s.tasks = tasks
	s.finalTaskID = tasks[len(tasks)-1].ID
	return statePopTask
}

func (s *Scheduler) popTask(context.Context) fsm.State {
	if len(s.tasks) == 0 {
		return stateGetRemote
	}
	s.current, s.tasks = s.tasks[0], s.tasks[1:]
	return statePutLocal
}

func (s *Scheduler) putLocal(ctx context.Context) fsm.State {
	t := s.current
	err := s.inbound.Put(ctx, &t, localTimeout)
	switch {
	case errors.Is(err, queue.ErrFull):
		return statePutLocal
	case err != nil:
		s.err = err
		return stateHalt
	default:
		s.metrics.Counter("scheduler_tasks_dispatched").Add(1)
		return statePopTask
	}
}
