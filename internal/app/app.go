// Package app holds the supervisor's instruction set and the notifier that
// turns worker panics into supervisor messages.
package app

import (
	"time"

	"loom/internal/channels"
	"loom/internal/errctx"
	"loom/internal/input"
	"loom/internal/panics"
)

// State is the application state shared with the input handlers.
type State struct {
	InputMode input.InputMode
}

// Instruction is a message handled by the supervisor. The set is closed:
// every variant embeds instruction and reports its call site.
type Instruction interface {
	Context() errctx.AppContext
	appInstruction()
}

type instruction struct{}

func (instruction) appInstruction() {}

type (
	// GetState asks for the current state on Reply.
	GetState struct {
		instruction
		Reply chan<- State
	}
	SetState struct {
		instruction
		State State
	}
	Exit struct{ instruction }
	// Error carries the report of a panicked worker.
	Error struct {
		instruction
		Report panics.Report
	}
)

func (GetState) Context() errctx.AppContext { return errctx.AppGetState }
func (SetState) Context() errctx.AppContext { return errctx.AppSetState }
func (Exit) Context() errctx.AppContext     { return errctx.AppExit }
func (Error) Context() errctx.AppContext    { return errctx.AppError }

// ContextOf returns the call site of i.
func ContextOf(i Instruction) errctx.AppContext {
	return i.Context()
}

// Tag returns the error-context frame recorded when i is received.
func Tag(i Instruction) errctx.ContextType {
	return errctx.App(i.Context())
}

// Sender is the supervisor channel's sending end.
type Sender = channels.SenderWithContext[Instruction]

// Receiver is the supervisor channel's receiving end.
type Receiver = channels.Receiver[Instruction]

// NewChannel creates the supervisor channel.
func NewChannel(buffer int) (Sender, *Receiver) {
	return channels.New[Instruction](buffer, Tag)
}

// Notifier posts worker panic reports to the supervisor as Error
// instructions. It never blocks longer than the timeout it is given.
type Notifier struct {
	To Sender
}

// NotifyPanic implements panics.Notifier.
func (n Notifier) NotifyPanic(r panics.Report, timeout time.Duration) error {
	return n.To.TrySend(Error{Report: r}, timeout)
}

var _ panics.Notifier = Notifier{}
