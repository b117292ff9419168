// Package task defines the record type carried through the client pipeline
// and its wire codec.
package task

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/shellq/client/internal/bufpool"
)

// NoExitStatus marks a Task that has not yet completed.
const NoExitStatus = -1

// Task is an opaque-to-the-wire record describing one shell command.
// Tasks arrive from the server carrying only ID and Args; the remaining
// fields are populated by the executor that runs them.
type Task struct {
	ID             string
	Args           string
	Command        string
	StartTime      time.Time
	CompletionTime time.Time
	ExitStatus     int
	ClientHost     string
}

// New constructs a Task as it arrives from the server: id and args only.
func New(id, args string) Task {
	return Task{ID: id, Args: args, ExitStatus: NoExitStatus}
}

// PackedTask is a single task serialized to bytes.
type PackedTask = []byte

// Bundle is an ordered sequence of packed tasks transmitted as a unit.
type Bundle = []PackedTask

// Pack serializes t to bytes. The encoding is an internal wire detail;
// callers must treat it as an opaque round-trip, per the codec contract
// owned by the server side in the distributed system this client is part of.
func (t Task) Pack() (PackedTask, error) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(t); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Unpack decodes a packed task produced by Pack.
func Unpack(data PackedTask) (Task, error) {
	var t Task
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// PackBundle packs every task in order into a Bundle.
func PackBundle(tasks []Task) (Bundle, error) {
	bundle := make(Bundle, 0, len(tasks))
	for _, t := range tasks {
		packed, err := t.Pack()
		if err != nil {
			return nil, err
		}
		bundle = append(bundle, packed)
	}
	return bundle, nil
}

// UnpackBundle decodes every packed task in a Bundle, preserving order.
// An empty, non-nil bundle is a protocol violation: see ErrEmptyBundle.
func UnpackBundle(bundle Bundle) ([]Task, error) {
	if bundle != nil && len(bundle) == 0 {
		return nil, ErrEmptyBundle
	}
	tasks := make([]Task, 0, len(bundle))
	for _, packed := range bundle {
		t, err := Unpack(packed)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
