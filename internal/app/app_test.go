package app

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"loom/internal/channels"
	"loom/internal/errctx"
	"loom/internal/input"
	"loom/internal/panics"
)

func TestContextOfIsTotal(t *testing.T) {
	variants := []Instruction{
		GetState{},
		SetState{State: State{InputMode: input.ModeCommand}},
		Exit{},
		Error{Report: panics.Report{Thread: "screen"}},
	}
	want := errctx.AppContexts()
	if len(variants) != len(want) {
		t.Fatalf("%d variants for %d call sites", len(variants), len(want))
	}
	seen := make(map[errctx.AppContext]bool)
	for _, v := range variants {
		c := ContextOf(v)
		name := reflect.TypeOf(v).Name()
		if seen[c] {
			t.Fatalf("call site %s reached twice", c)
		}
		seen[c] = true
		if c.String() != name {
			t.Fatalf("%s maps to %s", name, c)
		}
		if Tag(v) != errctx.App(c) {
			t.Fatalf("Tag(%s) = %s", name, Tag(v).Plain())
		}
	}
}

func TestNotifierDelivers(t *testing.T) {
	tx, rx := NewChannel(1)
	n := Notifier{To: tx}
	rep := panics.Report{Thread: "pty", Message: "boom", HasMessage: true}
	if err := n.NotifyPanic(rep, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	instr, call, ok := rx.Recv()
	if !ok {
		t.Fatalf("channel closed")
	}
	if call != errctx.App(errctx.AppError) {
		t.Fatalf("recorded %s", call.Plain())
	}
	got, isErr := instr.(Error)
	if !isErr || got.Report.Thread != "pty" || got.Report.Message != "boom" {
		t.Fatalf("unexpected instruction %#v", instr)
	}
}

func TestNotifierGivesUp(t *testing.T) {
	tx, rx := NewChannel(0)
	n := Notifier{To: tx}
	start := time.Now()
	err := n.NotifyPanic(panics.Report{Thread: "screen"}, 20*time.Millisecond)
	if !errors.Is(err, channels.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("notifier blocked too long")
	}

	rx.Close()
	if err := n.NotifyPanic(panics.Report{}, time.Millisecond); !errors.Is(err, channels.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
