package trace

import (
	"sync/atomic"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindThreadStart Kind = iota + 1 // goroutine bound to a thread name
	KindInstruction                 // instruction received
	KindPanic                       // panic captured by the router
	KindThreadExit                  // goroutine finished
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindThreadStart:
		return "start"
	case KindInstruction:
		return "instruction"
	case KindPanic:
		return "panic"
	case KindThreadExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time   time.Time // wall-clock timestamp
	Seq    uint64    // global sequence number (monotonic)
	Kind   Kind      // event kind
	GID    uint64    // goroutine ID
	Thread string    // thread name, e.g. "screen_thread"
	Call   string    // call site, e.g. "screen_thread: Render"
	Detail string    // optional detail message
}

var globalSeq uint64

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}

// Emit stamps ev and hands it to t if t's level lets it through.
func Emit(t Tracer, ev Event) {
	if t == nil || !t.Level().ShouldEmit(ev.Kind) {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	ev.Seq = NextSeq()
	t.Emit(ev)
}
