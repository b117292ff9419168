package metrics

import (
	"reflect"
	"runtime"
	"sync"
	"testing"
)

func TestBasicProviderCounterReusedAndAccumulates(t *testing.T) {
	p := NewBasicProvider()

	c1 := p.Counter("scheduler_tasks_dispatched")
	c2 := p.Counter("scheduler_tasks_dispatched")
	if reflect.ValueOf(c1).Pointer() != reflect.ValueOf(c2).Pointer() {
		t.Fatalf("expected the same counter instance for the same name")
	}

	c1.Add(3)
	c2.Add(2)
	if got := c1.(*BasicCounter).Snapshot(); got != 5 {
		t.Fatalf("counter value = %d, want 5", got)
	}

	other := p.Counter("executor_tasks_completed")
	if reflect.ValueOf(other).Pointer() == reflect.ValueOf(c1).Pointer() {
		t.Fatalf("expected a different instance for a different name")
	}
}

func TestBasicProviderUpDownCounterReusedAndMoves(t *testing.T) {
	p := NewBasicProvider()
	u1 := p.UpDownCounter("executor_tasks_inflight")
	u2 := p.UpDownCounter("executor_tasks_inflight")
	if reflect.ValueOf(u1).Pointer() != reflect.ValueOf(u2).Pointer() {
		t.Fatalf("expected the same updown instance for the same name")
	}

	u1.Add(3)
	u2.Add(-1)
	u1.Add(10)
	if got := u1.(*BasicUpDownCounter).Snapshot(); got != 12 {
		t.Fatalf("updown value = %d, want 12", got)
	}
}

func TestBasicProviderHistogramRecordsStats(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("executor_task_duration_seconds")

	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)

	s := h.(*BasicHistogram).Snapshot()
	if s.Count != 3 {
		t.Fatalf("count = %d, want 3", s.Count)
	}
	if s.Min != 0.1 || s.Max != 0.3 {
		t.Fatalf("min/max = (%v,%v), want (0.1,0.3)", s.Min, s.Max)
	}
	if s.Sum < 0.59 || s.Sum > 0.61 {
		t.Fatalf("sum = %v, want ~0.6", s.Sum)
	}
	if s.Mean < 0.19 || s.Mean > 0.21 {
		t.Fatalf("mean = %v, want ~0.2", s.Mean)
	}
}

func TestBasicProviderConcurrentSameInstrument(t *testing.T) {
	p := NewBasicProvider()
	n := 50
	ptrs := make([]uintptr, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			ptrs[idx] = reflect.ValueOf(p.Counter("collector_tasks_returned")).Pointer()
		}(i)
	}
	wg.Wait()

	first := ptrs[0]
	for i, ptr := range ptrs {
		if ptr != first {
			t.Fatalf("expected the same pointer for every lookup, mismatch at %d", i)
		}
	}
}

func TestBasicProviderConcurrentCounterAdd(t *testing.T) {
	p := NewBasicProvider()
	c := p.Counter("executor_tasks_completed")
	bc := c.(*BasicCounter)

	workers := runtime.NumCPU() * 2
	iters := 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				c.Add(1)
			}
		}()
	}
	wg.Wait()

	if want := int64(workers * iters); bc.Snapshot() != want {
		t.Fatalf("counter = %d, want %d", bc.Snapshot(), want)
	}
}

func TestBasicProviderConcurrentUpDownAdd(t *testing.T) {
	p := NewBasicProvider()
	u := p.UpDownCounter("executor_tasks_inflight")
	bu := u.(*BasicUpDownCounter)

	workers := runtime.NumCPU() * 2
	iters := 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				if (i+id)%2 == 0 {
					u.Add(1)
				} else {
					u.Add(-1)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := bu.Snapshot(); got != 0 {
		t.Fatalf("updown = %d, want 0", got)
	}
}

func TestBasicProviderConcurrentHistogramRecord(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("collector_bundle_size")
	bh := h.(*BasicHistogram)

	workers := runtime.NumCPU() * 2
	iters := 500

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				h.Record(float64((base%10)+i%10) / 100.0)
			}
		}(w)
	}
	wg.Wait()

	s := bh.Snapshot()
	if want := int64(workers * iters); s.Count != want {
		t.Fatalf("hist count = %d, want %d", s.Count, want)
	}
	if s.Min < 0.0 || s.Min > 0.09 || s.Max < 0.0 || s.Max > 0.19 {
		t.Fatalf("min/max out of expected range: (%v,%v)", s.Min, s.Max)
	}
}

func TestBasicProviderReportSnapshotsEveryInstrument(t *testing.T) {
	p := NewBasicProvider()

	p.Counter("scheduler_tasks_dispatched").Add(7)
	p.UpDownCounter("executor_tasks_inflight").Add(2)
	p.Histogram("executor_task_duration_seconds").Record(1.5)
	p.Histogram("executor_task_duration_seconds").Record(2.5)

	r := p.Report()

	if got := r.Counters["scheduler_tasks_dispatched"]; got != 7 {
		t.Fatalf("Counters[scheduler_tasks_dispatched] = %d, want 7", got)
	}
	if got := r.UpDowns["executor_tasks_inflight"]; got != 2 {
		t.Fatalf("UpDowns[executor_tasks_inflight] = %d, want 2", got)
	}
	hist, ok := r.Histograms["executor_task_duration_seconds"]
	if !ok {
		t.Fatalf("expected a histogram entry in the report")
	}
	if hist.Count != 2 || hist.Sum != 4 {
		t.Fatalf("histogram = %+v, want count=2 sum=4", hist)
	}

	if _, ok := r.Counters["never_touched"]; ok {
		t.Fatalf("Report should not invent entries for instruments never constructed")
	}
}
