package metrics

// NoopProvider discards every instrument it constructs. It is the
// Config default for a client run over no observability backend.
type NoopProvider struct{}

// NewNoopProvider constructs a Provider that discards all metrics.
func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(_ string) Counter             { return noopInstrument{} }
func (NoopProvider) UpDownCounter(_ string) UpDownCounter { return noopInstrument{} }
func (NoopProvider) Histogram(_ string) Histogram         { return noopInstrument{} }

type noopInstrument struct{}

func (noopInstrument) Add(_ int64)      {}
func (noopInstrument) Record(_ float64) {}
