package remote

import (
	"context"
	"sync"
	"time"

	"github.com/shellq/client/task"
)

// MemEndpoint is an in-process Endpoint backed by Go channels. It
// implements the same three-channel contract as TCPEndpoint without
// touching the network, and is the harness the end-to-end pipeline
// scenarios and tests in this module are built on.
type MemEndpoint struct {
	scheduled chan task.Bundle
	completed chan task.Bundle
	terminate chan string

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemEndpoint creates a MemEndpoint. scheduledBacklog sizes the
// buffer of bundles a test can pre-load onto `scheduled` before a
// Scheduler starts draining it.
func NewMemEndpoint(scheduledBacklog int) *MemEndpoint {
	return &MemEndpoint{
		scheduled: make(chan task.Bundle, scheduledBacklog),
		completed: make(chan task.Bundle, 64),
		terminate: make(chan string, 1),
		closed:    make(chan struct{}),
	}
}

// SendScheduled enqueues a bundle for the Scheduler to receive. Passing
// a nil bundle publishes the disconnect sentinel.
func (m *MemEndpoint) SendScheduled(bundle task.Bundle) {
	m.scheduled <- bundle
}

// Completed returns the channel a test can drain to observe bundles the
// client returned.
func (m *MemEndpoint) Completed() <-chan task.Bundle { return m.completed }

// Terminator returns the channel a test can read the published terminal
// id from.
func (m *MemEndpoint) Terminator() <-chan string { return m.terminate }

func (m *MemEndpoint) GetScheduled(ctx context.Context, timeout time.Duration) (task.Bundle, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case bundle := <-m.scheduled:
		return bundle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (m *MemEndpoint) PutCompleted(ctx context.Context, bundle task.Bundle) error {
	select {
	case m.completed <- bundle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemEndpoint) PutTerminator(ctx context.Context, id string) error {
	select {
	case m.terminate <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemEndpoint) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
