// Package fsm provides a minimal state-table run loop shared by the
// pipeline's Scheduler, Executor, and Collector state machines.
//
// Each machine owns its state purely as a local value inside Run; no
// field is mutated from outside the owning goroutine. A machine is
// described by a starting State and a table mapping State to a handler
// that returns the next State. Run loops calling handlers until a
// handler returns the designated halt state.
package fsm

import "context"

// State names one state of a machine.
type State int

// Handler executes one state's action and returns the next state.
// A handler observes ctx to detect a halt request; it must return
// promptly (the pipeline's timeouts are all <= 2s) so Run can react to
// cancellation at the next state boundary.
type Handler func(ctx context.Context) State

// Table maps each non-halt State to its Handler.
type Table map[State]Handler

// Run executes the machine described by table, starting at start, until
// a handler returns halt or ctx is cancelled between states. It panics
// if a reachable state has no handler in table. That is a programming
// error in the machine definition, not a runtime condition.
func Run(ctx context.Context, table Table, start, halt State) {
	state := start
	for state != halt {
		select {
		case <-ctx.Done():
			return
		default:
		}

		handler, ok := table[state]
		if !ok {
			panic("fsm: no handler registered for state")
		}
		state = handler(ctx)
	}
}
