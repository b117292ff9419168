// Package remote abstracts the three named channels the client exchanges
// with the server: scheduled (inbound bundles), completed (outbound
// bundles), and terminator (the final task id). Endpoint is kept as a
// narrow interface with two implementations: a TCP transport for real
// deployments and an in-process one for tests.
package remote

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shellq/client/task"
)

// ErrAuthFailed is returned when the shared-secret handshake fails at
// connection time. It is fatal for the client.
var ErrAuthFailed = errors.New("remote: authentication failed")

// ErrTimeout is returned by GetScheduled when no bundle arrives before
// the timeout elapses.
var ErrTimeout = errors.New("remote: timeout")

// Endpoint is the capability the Scheduler, Collector, and Coordinator
// share. Acquisition (constructing an Endpoint) opens an authenticated
// connection; Close releases it on every exit path.
type Endpoint interface {
	// GetScheduled returns the next inbound bundle. A nil bundle with a
	// nil error means the server disconnected (the null sentinel). A
	// nil bundle with ErrTimeout means nothing arrived within timeout.
	GetScheduled(ctx context.Context, timeout time.Duration) (task.Bundle, error)

	// PutCompleted hands a bundle of finished tasks to the server. It
	// may block until accepted.
	PutCompleted(ctx context.Context, bundle task.Bundle) error

	// PutTerminator publishes the terminal task id. Single-shot: called
	// exactly once, at shutdown, after PutCompleted has drained.
	PutTerminator(ctx context.Context, id string) error

	// Close releases the connection. Idempotent.
	Close() error
}

// isDisconnect reports whether err represents an orderly server
// disconnect rather than a genuine I/O failure.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF)
}
