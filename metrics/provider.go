// Package metrics gives the three pipeline stages a small instrumentation
// surface without tying them to any particular metrics backend. The
// instruments it exposes match what the pipeline actually measures:
// counts of tasks handled, in-flight task gauges, and task/bundle size
// distributions.
package metrics

// Provider constructs instruments by name. A name is reused across
// calls: a stage calls Counter/UpDownCounter/Histogram with the same
// instrument name on every relevant state transition rather than
// caching the instrument itself, so a Provider implementation owns the
// per-name identity.
//
// Implementations must be safe for concurrent use: the Scheduler,
// Executors, and Collector all call into the same Provider from their
// own goroutines.
type Provider interface {
	Counter(name string) Counter
	UpDownCounter(name string) UpDownCounter
	Histogram(name string) Histogram
}

// Counter records monotonic counts, e.g. tasks dispatched or returned.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records a value that moves up and down, e.g. tasks
// currently in flight in an executor slot.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of measurements, e.g. task duration
// in seconds or bundle size in tasks.
type Histogram interface {
	Record(v float64)
}
