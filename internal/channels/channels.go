// Package channels carries instructions between the runtime's threads
// together with the sender's error context.
package channels

import (
	"context"
	"errors"
	"time"

	"loom/internal/errctx"
	"loom/internal/trace"
)

var (
	// ErrClosed is returned when the receiving side has been shut down.
	ErrClosed = errors.New("channels: send on closed channel")
	// ErrTimeout is returned by TrySend when the receiver did not accept the
	// message in time.
	ErrTimeout = errors.New("channels: send timed out")
)

// Message is an instruction plus the context of the goroutine that sent it.
type Message[T any] struct {
	Instr T
	Ctx   errctx.ErrorContext
}

// TagFunc maps an instruction to the call site it is recorded under.
type TagFunc[T any] func(T) errctx.ContextType

// New creates a channel with the given buffer and returns both ends.
func New[T any](buffer int, tag TagFunc[T]) (SenderWithContext[T], *Receiver[T]) {
	ch := make(chan Message[T], buffer)
	return SenderWithContext[T]{ch: ch}, &Receiver[T]{ch: ch, tag: tag, tracer: trace.Nop}
}

// SenderWithContext sends instructions stamped with the caller's current
// error context. It is a small value and may be copied freely.
type SenderWithContext[T any] struct {
	ch chan<- Message[T]
}

// Send blocks until the message is accepted.
func (s SenderWithContext[T]) Send(instr T) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()
	s.ch <- Message[T]{Instr: instr, Ctx: errctx.Current()}
	return nil
}

// SendCtx blocks until the message is accepted or ctx is done.
func (s SenderWithContext[T]) SendCtx(ctx context.Context, instr T) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()
	select {
	case s.ch <- Message[T]{Instr: instr, Ctx: errctx.Current()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend waits at most timeout for the receiver. A zero timeout only
// succeeds if the message can be delivered immediately.
func (s SenderWithContext[T]) TrySend(instr T, timeout time.Duration) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()
	msg := Message[T]{Instr: instr, Ctx: errctx.Current()}
	if timeout <= 0 {
		select {
		case s.ch <- msg:
			return nil
		default:
			return ErrTimeout
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.ch <- msg:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// Receiver takes messages off a channel and records each instruction in the
// receiving goroutine's error context.
type Receiver[T any] struct {
	ch     chan Message[T]
	tag    TagFunc[T]
	tracer trace.Tracer
}

// SetTracer attaches a tracer that gets one event per received instruction.
func (r *Receiver[T]) SetTracer(t trace.Tracer) {
	if t == nil {
		t = trace.Nop
	}
	r.tracer = t
}

// Recv blocks for the next instruction. The sender's context is adopted,
// the instruction's call site is appended and the result becomes the calling
// goroutine's current context. ok is false once the channel is closed.
func (r *Receiver[T]) Recv() (instr T, call errctx.ContextType, ok bool) {
	msg, ok := <-r.ch
	if !ok {
		return instr, errctx.Empty, false
	}
	instr, call = r.accept(msg)
	return instr, call, true
}

// Chan exposes the raw channel for use in select statements. Messages taken
// from it must be passed to Accept.
func (r *Receiver[T]) Chan() <-chan Message[T] {
	return r.ch
}

// Accept records msg the same way Recv does and returns its instruction.
func (r *Receiver[T]) Accept(msg Message[T]) T {
	instr, _ := r.accept(msg)
	return instr
}

func (r *Receiver[T]) accept(msg Message[T]) (T, errctx.ContextType) {
	call := r.tag(msg.Instr)
	ctx := msg.Ctx
	ctx.AddCall(call)
	if r.tracer.Enabled() {
		trace.Emit(r.tracer, trace.Event{
			Kind:   trace.KindInstruction,
			GID:    errctx.GoroutineID(),
			Thread: errctx.ThreadName(),
			Call:   call.Plain(),
		})
	}
	return msg.Instr, call
}

// Close closes the channel. Senders get ErrClosed afterwards.
func (r *Receiver[T]) Close() {
	defer func() { _ = recover() }()
	close(r.ch)
}
