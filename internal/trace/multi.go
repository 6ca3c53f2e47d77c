package trace

// MultiTracer fans out trace events to multiple tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer creates a new MultiTracer that emits to all provided tracers.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{
		tracers: tracers,
		level:   level,
	}
}

// Emit sends the event to every underlying tracer whose level admits it.
func (t *MultiTracer) Emit(ev Event) {
	for _, tr := range t.tracers {
		if tr.Level().ShouldEmit(ev.Kind) {
			tr.Emit(ev)
		}
	}
}

// Flush flushes all underlying tracers.
func (t *MultiTracer) Flush() error {
	var firstErr error
	for _, tr := range t.tracers {
		if err := tr.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all underlying tracers.
func (t *MultiTracer) Close() error {
	var firstErr error
	for _, tr := range t.tracers {
		if err := tr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Level returns the configured level.
func (t *MultiTracer) Level() Level { return t.level }

// Enabled returns true if tracing is active.
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

// With returns a MultiTracer that also emits to extra. The level is the
// highest of the combined tracers.
func With(base Tracer, extra ...Tracer) Tracer {
	all := make([]Tracer, 0, len(extra)+1)
	level := LevelOff
	for _, tr := range append([]Tracer{base}, extra...) {
		if tr == nil || !tr.Enabled() {
			continue
		}
		all = append(all, tr)
		level = max(level, tr.Level())
	}
	switch len(all) {
	case 0:
		return Nop
	case 1:
		return all[0]
	}
	return NewMultiTracer(level, all...)
}
