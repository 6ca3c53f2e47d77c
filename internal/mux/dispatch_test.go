package mux

import (
	"context"
	"testing"

	"loom/internal/app"
	"loom/internal/channels"
	"loom/internal/errctx"
	"loom/internal/input"
	"loom/internal/pty"
	"loom/internal/screen"
)

func TestDispatchRoutes(t *testing.T) {
	screenTx, screenRx := channels.New[screen.Instruction](1, screen.Tag)
	ptyTx, ptyRx := channels.New[pty.Instruction](1, pty.Tag)
	appTx, appRx := app.NewChannel(1)
	d := NewDispatcher(screenTx, ptyTx, appTx)

	cases := []struct {
		line string
		want errctx.ContextType
	}{
		{"quit", errctx.App(errctx.AppExit)},
		{"write ls", errctx.Screen(errctx.ScreenWriteCharacter)},
		{"mode command", errctx.App(errctx.AppSetState)},
		{"resize left", errctx.Screen(errctx.ScreenResizeLeft)},
		{"resize down", errctx.Screen(errctx.ScreenResizeDown)},
		{"switch-focus up", errctx.Screen(errctx.ScreenMoveFocus)},
		{"move-focus right", errctx.Screen(errctx.ScreenMoveFocusRight)},
		{"move-focus up", errctx.Screen(errctx.ScreenMoveFocusUp)},
		{"scroll-up", errctx.Screen(errctx.ScreenScrollUp)},
		{"scroll-down", errctx.Screen(errctx.ScreenScrollDown)},
		{"fullscreen", errctx.Screen(errctx.ScreenToggleActiveTerminalFullscreen)},
		{"new-pane", errctx.Pty(errctx.PtySpawnTerminal)},
		{"new-pane left", errctx.Pty(errctx.PtySpawnTerminalVertically)},
		{"new-pane down", errctx.Pty(errctx.PtySpawnTerminalHorizontally)},
		{"close-focus", errctx.Screen(errctx.ScreenCloseFocusedPane)},
		{"new-tab", errctx.Pty(errctx.PtyNewTab)},
		{"next-tab", errctx.Screen(errctx.ScreenSwitchTabNext)},
		{"prev-tab", errctx.Screen(errctx.ScreenSwitchTabPrev)},
		{"close-tab", errctx.Screen(errctx.ScreenCloseTab)},
	}
	ctx := context.Background()
	for _, tc := range cases {
		a, err := input.ParseAction(tc.line)
		if err != nil {
			t.Fatalf("%s: %v", tc.line, err)
		}
		if err := d.Dispatch(ctx, a); err != nil {
			t.Fatalf("%s: %v", tc.line, err)
		}
		var got errctx.ContextType
		switch tc.want.Thread() {
		case errctx.ThreadScreen:
			_, got, _ = screenRx.Recv()
		case errctx.ThreadPty:
			_, got, _ = ptyRx.Recv()
		case errctx.ThreadApp:
			_, got, _ = appRx.Recv()
		}
		if got != tc.want {
			t.Fatalf("%s dispatched to %s, want %s", tc.line, got.Plain(), tc.want.Plain())
		}
	}
}

func TestDispatchCarriesInputContext(t *testing.T) {
	screenTx, screenRx := channels.New[screen.Instruction](1, screen.Tag)
	ptyTx, _ := channels.New[pty.Instruction](1, pty.Tag)
	appTx, _ := app.NewChannel(1)
	d := NewDispatcher(screenTx, ptyTx, appTx)

	done := make(chan errctx.ErrorContext, 1)
	go func() {
		errctx.Bind("stdin_handler")
		defer errctx.Release()
		var ec errctx.ErrorContext
		ec.AddCall(errctx.StdinHandler)
		if err := d.Dispatch(context.Background(), input.Action{Kind: input.ScrollUp}); err != nil {
			t.Errorf("dispatch: %v", err)
		}
		done <- ec
	}()
	<-done

	msg := <-screenRx.Chan()
	calls := msg.Ctx.Calls()
	if len(calls) != 1 || calls[0] != errctx.StdinHandler {
		t.Fatalf("sender context = %v", calls)
	}
}
