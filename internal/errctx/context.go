package errctx

import (
	"strconv"
	"strings"
)

// MaxThreadCallStack is the number of calls an ErrorContext can hold.
const MaxThreadCallStack = 6

// ErrorContext is a bounded trail of the calls that led the current goroutine
// to its current instruction. It is a plain value: copying it copies the trail.
// The zero value is an empty context.
type ErrorContext struct {
	calls [MaxThreadCallStack]ContextType
}

// New returns an empty context.
func New() ErrorContext {
	return ErrorContext{}
}

// AddCall appends call to the first free slot and publishes the result as the
// calling goroutine's current context. Once all slots are used further calls
// are dropped, so the earliest frames survive.
func (c *ErrorContext) AddCall(call ContextType) {
	for i := range c.calls {
		if c.calls[i].IsEmpty() {
			c.calls[i] = call
			break
		}
	}
	Publish(*c)
}

// Calls returns the recorded calls in order.
func (c ErrorContext) Calls() []ContextType {
	out := make([]ContextType, 0, MaxThreadCallStack)
	for _, call := range c.calls {
		if call.IsEmpty() {
			break
		}
		out = append(out, call)
	}
	return out
}

// Len returns the number of recorded calls.
func (c ErrorContext) Len() int {
	n := 0
	for _, call := range c.calls {
		if call.IsEmpty() {
			break
		}
		n++
	}
	return n
}

// Full reports whether further calls would be dropped.
func (c ErrorContext) Full() bool {
	return !c.calls[MaxThreadCallStack-1].IsEmpty()
}

// String renders the trail as a numbered list under an
// "Originating Thread(s):" header.
func (c ErrorContext) String() string {
	var sb strings.Builder
	sb.WriteString("Originating Thread(s):\n")
	for i, call := range c.calls {
		if call.IsEmpty() {
			break
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(call.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
