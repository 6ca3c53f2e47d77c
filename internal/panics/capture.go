package panics

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"loom/internal/errctx"
)

// panicMessage extracts a human-readable message from a panic value.
// Values that are not strings, errors or Stringers carry no message.
func panicMessage(v any) (msg string, ok bool) {
	defer func() {
		if recover() != nil {
			msg, ok = "", false
		}
	}()
	switch x := v.(type) {
	case string:
		return x, true
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

// panicLocation finds the frame that raised the panic currently unwinding:
// the first non-runtime frame below runtime.gopanic. It returns nil when
// there is no such frame, for instance when called outside a panic.
func panicLocation() *Location {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	inPanic := false
	for {
		f, more := frames.Next()
		switch {
		case f.Function == "runtime.gopanic":
			inPanic = true
		case inPanic && !isRuntimeFrame(f.Function):
			if f.File == "" {
				return nil
			}
			return &Location{File: f.File, Line: f.Line}
		}
		if !more {
			return nil
		}
	}
}

// capture builds the report for panic value v on the calling goroutine.
func capture(v any) Report {
	msg, hasMsg := panicMessage(v)
	return Compose(Report{
		Time:       time.Now(),
		Thread:     errctx.ThreadName(),
		Message:    msg,
		HasMessage: hasMsg,
		Location:   panicLocation(),
		Context:    errctx.Current(),
		Stack:      string(debug.Stack()),
	})
}

func isRuntimeFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") || strings.HasPrefix(fn, "internal/runtime/")
}
