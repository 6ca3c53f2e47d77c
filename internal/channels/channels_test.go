package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"loom/internal/errctx"
	"loom/internal/trace"
)

type ping struct{ n int }

func pingTag(ping) errctx.ContextType { return errctx.Screen(errctx.ScreenRender) }

func TestSendCarriesSenderContext(t *testing.T) {
	tx, rx := New[ping](1, pingTag)
	ring := trace.NewRingTracer(8, trace.LevelInstruction)
	rx.SetTracer(ring)

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		errctx.Bind("stdin_handler_thread")
		defer errctx.Release()
		ctx := errctx.New()
		ctx.AddCall(errctx.StdinHandler)
		if err := tx.Send(ping{n: 1}); err != nil {
			t.Errorf("send: %v", err)
		}
	}()
	<-sent

	got := make(chan errctx.ErrorContext)
	go func() {
		errctx.Bind("screen_thread")
		defer errctx.Release()
		instr, call, ok := rx.Recv()
		if !ok || instr.n != 1 || call != errctx.Screen(errctx.ScreenRender) {
			t.Errorf("unexpected recv: %+v %v %v", instr, call, ok)
		}
		got <- errctx.Current()
	}()

	calls := (<-got).Calls()
	want := []errctx.ContextType{errctx.StdinHandler, errctx.Screen(errctx.ScreenRender)}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, calls[i].Plain(), want[i].Plain())
		}
	}

	events := ring.Snapshot()
	if len(events) != 1 || events[0].Thread != "screen_thread" || events[0].Call != "screen_thread: Render" {
		t.Fatalf("unexpected trace events: %+v", events)
	}
}

func TestTrySendTimesOut(t *testing.T) {
	tx, _ := New[ping](0, pingTag)
	start := time.Now()
	if err := tx.TrySend(ping{}, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("TrySend should be bounded")
	}
	if err := tx.TrySend(ping{}, 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected immediate failure, got %v", err)
	}
}

func TestSendOnClosedChannel(t *testing.T) {
	tx, rx := New[ping](1, pingTag)
	rx.Close()
	rx.Close()
	if err := tx.Send(ping{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v", err)
	}
	if err := tx.TrySend(ping{}, time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Fatalf("TrySend after close = %v", err)
	}
	if _, _, ok := rx.Recv(); ok {
		t.Fatalf("Recv on closed channel should report !ok")
	}
}

func TestSendCtxStopsOnCancel(t *testing.T) {
	tx, rx := New[ping](0, pingTag)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tx.SendCtx(ctx, ping{n: 1}) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("SendCtx did not return after cancel")
	}
	rx.Close()
	if err := tx.SendCtx(context.Background(), ping{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
