package panics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"loom/internal/errctx"
)

// Location is the source position a panic was raised at.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	return l.File + ":" + strconv.Itoa(l.Line)
}

// Report describes one captured panic.
type Report struct {
	Time       time.Time
	Thread     string
	Message    string
	HasMessage bool
	Location   *Location
	Context    errctx.ErrorContext
	Stack      string
	// Text is the composed, human-readable report.
	Text string
}

// String returns the composed report.
func (r Report) String() string {
	return r.Text
}

// Header returns the single "thread '...' panicked" line of the report,
// without color.
func (r Report) Header() string {
	return header(r.Thread, r.Message, r.HasMessage, r.Location)
}

var errColor = color.New(color.FgRed)

func header(thread, msg string, hasMsg bool, loc *Location) string {
	if thread == "" {
		thread = "unnamed"
	}
	switch {
	case hasMsg && loc != nil:
		return fmt.Sprintf("thread '%s' panicked at '%s': %s", thread, msg, loc)
	case loc != nil:
		return fmt.Sprintf("thread '%s' panicked: %s", thread, loc)
	case hasMsg:
		return fmt.Sprintf("thread '%s' panicked at '%s'", thread, msg)
	default:
		return fmt.Sprintf("thread '%s' panicked", thread)
	}
}

// Compose fills r.Text from the other fields: the context trail, a blank
// line, the header and the stack trace.
func Compose(r Report) Report {
	var sb strings.Builder
	sb.WriteString(r.Context.String())
	sb.WriteString("\nError: ")
	sb.WriteString(errColor.Sprint(r.Header()))
	sb.WriteByte('\n')
	if r.Stack != "" {
		sb.WriteString(r.Stack)
	}
	r.Text = sb.String()
	return r
}

// minimal builds a report out of the thread name and context only. It is
// what the router falls back to when composing the full report fails.
func minimal(thread string, ctx errctx.ErrorContext) Report {
	if thread == "" {
		thread = "unnamed"
	}
	return Report{
		Time:    time.Now(),
		Thread:  thread,
		Context: ctx,
		Text:    ctx.String() + "\nError: thread '" + thread + "' panicked\n",
	}
}
