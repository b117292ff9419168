// Package bufpool recycles byte buffers used when packing tasks. It
// adapts a generic sync.Pool-backed object-pool shape to buffers
// instead of worker handles: the pipeline's hot path is Task.Pack,
// called once per task per bundle, and a fresh
// bytes.Buffer per call is needless allocation pressure once bundles
// are flowing through a bounded queue under load.
package bufpool

import (
	"bytes"
	"sync"
)

var pool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// Get returns a reset, ready-to-use buffer.
func Get() *bytes.Buffer {
	buf := pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. Callers must not use buf afterward.
func Put(buf *bytes.Buffer) {
	pool.Put(buf)
}
