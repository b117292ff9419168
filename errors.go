package client

import (
	"errors"

	"github.com/shellq/client/errtag"
)

const Namespace = "client"

var (
	// ErrInvalidConfig is returned by New/NewOptions when the assembled
	// Config fails validation.
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")

	// ErrAlreadyStarted is returned by Run if called more than once on
	// the same Coordinator.
	ErrAlreadyStarted = errors.New(Namespace + ": coordinator already started")
)

// TaskError exposes correlation metadata for an executor-stage failure:
// which task id and which executor slot observed it. See errtag.TaskError;
// re-exported here so callers of this package never need to import the
// internal tagging package directly.
type TaskError = errtag.TaskError

// ExtractTaskID returns the task id carried by err, if any.
func ExtractTaskID(err error) (string, bool) { return errtag.ExtractTaskID(err) }

// ExtractSlot returns the executor slot carried by err, if any.
func ExtractSlot(err error) (int, bool) { return errtag.ExtractSlot(err) }
