package panics

import (
	"strings"
	"testing"

	"loom/internal/errctx"
)

func sampleContext() errctx.ErrorContext {
	ctx := errctx.New()
	ctx.AddCall(errctx.Screen(errctx.ScreenRender))
	ctx.AddCall(errctx.Pty(errctx.PtySpawnTerminal))
	return ctx
}

func TestComposeCombinations(t *testing.T) {
	loc := &Location{File: "x.src", Line: 42}
	tests := []struct {
		name   string
		msg    string
		hasMsg bool
		loc    *Location
		want   string
	}{
		{"full", "boom", true, loc, "Error: thread 'main' panicked at 'boom': x.src:42\n"},
		{"location only", "", false, loc, "Error: thread 'main' panicked: x.src:42\n"},
		{"message only", "boom", true, nil, "Error: thread 'main' panicked at 'boom'\n"},
		{"nothing", "", false, nil, "Error: thread 'main' panicked\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Compose(Report{
				Thread:     "main",
				Message:    tt.msg,
				HasMessage: tt.hasMsg,
				Location:   tt.loc,
				Context:    sampleContext(),
				Stack:      "goroutine 1 [running]:\n",
			})
			want := "Originating Thread(s):\n" +
				"1. screen_thread: Render\n" +
				"2. pty_thread: SpawnTerminal\n" +
				"\n" + tt.want +
				"goroutine 1 [running]:\n"
			if rep.Text != want {
				t.Fatalf("report mismatch:\nwant %q\ngot  %q", want, rep.Text)
			}
			if rep.String() != rep.Text {
				t.Fatalf("String() should return the text")
			}
		})
	}
}

func TestComposeStructureOrder(t *testing.T) {
	rep := Compose(Report{
		Thread:     "main",
		Message:    "boom",
		HasMessage: true,
		Location:   &Location{File: "x.src", Line: 42},
		Context:    sampleContext(),
		Stack:      "STACK",
	})
	order := []string{"screen_thread", "pty_thread", "thread 'main'", "boom", "x.src:42", "STACK"}
	assertOrder(t, rep.Text, order)
}

func TestComposeUnnamedThread(t *testing.T) {
	rep := Compose(Report{})
	if !strings.Contains(rep.Text, "thread 'unnamed' panicked\n") {
		t.Fatalf("unexpected report: %q", rep.Text)
	}
	if !strings.HasPrefix(rep.Text, "Originating Thread(s):\n\nError: ") {
		t.Fatalf("empty trail should render the header only: %q", rep.Text)
	}
}

func assertOrder(t *testing.T, text string, parts []string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		idx := strings.Index(text[pos:], p)
		if idx < 0 {
			t.Fatalf("%q missing or out of order in:\n%s", p, text)
		}
		pos += idx + len(p)
	}
}
