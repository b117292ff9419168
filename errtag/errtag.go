// Package errtag wraps an error with the task id and executor slot that
// observed it, so a log line or a surfaced error can be correlated back
// to the task and worker that produced it without threading extra
// parameters through every call site.
package errtag

import (
	"errors"
	"fmt"
)

// TaskError exposes correlation metadata for a task failure.
type TaskError interface {
	error
	Unwrap() error
	TaskID() string
	Slot() int
}

type taskError struct {
	err  error
	id   string
	slot int
}

// New wraps err with the task id and executor slot that observed it.
// Returns nil if err is nil, so callers can write
// `return errtag.New(err, id, slot)` unconditionally.
func New(err error, id string, slot int) error {
	if err == nil {
		return nil
	}
	return &taskError{err: err, id: id, slot: slot}
}

func (e *taskError) Error() string {
	if e.id == "" {
		return fmt.Sprintf("slot %d: %v", e.slot, e.err)
	}
	return fmt.Sprintf("task %s (slot %d): %v", e.id, e.slot, e.err)
}
func (e *taskError) Unwrap() error  { return e.err }
func (e *taskError) TaskID() string { return e.id }
func (e *taskError) Slot() int      { return e.slot }

// ExtractTaskID returns the task id carried by err. ok is false both
// when err carries no TaskError and when it does but no task was in
// flight when the error occurred (an empty id).
func ExtractTaskID(err error) (string, bool) {
	var te TaskError
	if errors.As(err, &te) {
		id := te.TaskID()
		return id, id != ""
	}
	return "", false
}

// ExtractSlot returns the executor slot carried by err, if any.
func ExtractSlot(err error) (int, bool) {
	var te TaskError
	if errors.As(err, &te) {
		return te.Slot(), true
	}
	return 0, false
}
