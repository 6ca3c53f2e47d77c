package trace

import "sync"

// ChannelTracer forwards events to a channel without ever blocking the
// emitter: events that do not fit are counted and dropped.
type ChannelTracer struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped uint64
	level   Level
}

// NewChannelTracer creates a ChannelTracer with the given buffer size.
func NewChannelTracer(buffer int, level Level) *ChannelTracer {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelTracer{ch: make(chan Event, buffer), level: level}
}

// Events returns the channel consumers read from. It is closed by Close.
func (t *ChannelTracer) Events() <-chan Event { return t.ch }

// Emit forwards ev if there is room.
func (t *ChannelTracer) Emit(ev Event) {
	if !t.level.ShouldEmit(ev.Kind) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- ev:
	default:
		t.dropped++
	}
}

// Dropped returns how many events did not fit into the buffer.
func (t *ChannelTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Flush is a no-op.
func (t *ChannelTracer) Flush() error { return nil }

// Close closes the event channel. Later events are discarded.
func (t *ChannelTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	return nil
}

// Level returns the current tracing level.
func (t *ChannelTracer) Level() Level { return t.level }

// Enabled returns true if tracing is active.
func (t *ChannelTracer) Enabled() bool { return t.level > LevelOff }
