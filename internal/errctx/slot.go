package errctx

import "sync"

// slot is the per-goroutine state. Only the owning goroutine reads or writes
// the fields; the map only guards its own structure.
type slot struct {
	name string
	ctx  ErrorContext
}

var slots sync.Map // goroutine ID -> *slot

func lookup(gid uint64) *slot {
	if v, ok := slots.Load(gid); ok {
		return v.(*slot)
	}
	return nil
}

// Bind names the calling goroutine and gives it a fresh, empty context.
func Bind(name string) {
	slots.Store(goroutineID(), &slot{name: name})
}

// Release drops the calling goroutine's slot. Call it before the goroutine
// exits.
func Release() {
	slots.Delete(goroutineID())
}

// Current returns the context last published by the calling goroutine.
func Current() ErrorContext {
	if s := lookup(goroutineID()); s != nil {
		return s.ctx
	}
	return ErrorContext{}
}

// Publish replaces the calling goroutine's context with ctx. It only takes
// effect between Bind and Release; an unbound goroutine has no slot and
// nothing is stored.
func Publish(ctx ErrorContext) {
	if s := lookup(goroutineID()); s != nil {
		s.ctx = ctx
	}
}

// ThreadName returns the name given to the calling goroutine by Bind, or ""
// when it was never bound.
func ThreadName() string {
	if s := lookup(goroutineID()); s != nil {
		return s.name
	}
	return ""
}
