package mux

import (
	"context"
	"fmt"

	"loom/internal/app"
	"loom/internal/channels"
	"loom/internal/input"
	"loom/internal/pty"
	"loom/internal/screen"
)

// Dispatcher turns user actions into instructions for the thread that owns
// them.
type Dispatcher struct {
	screen channels.SenderWithContext[screen.Instruction]
	pty    channels.SenderWithContext[pty.Instruction]
	app    app.Sender
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(
	screenTx channels.SenderWithContext[screen.Instruction],
	ptyTx channels.SenderWithContext[pty.Instruction],
	appTx app.Sender,
) Dispatcher {
	return Dispatcher{screen: screenTx, pty: ptyTx, app: appTx}
}

// Dispatch sends the instruction a stands for. It blocks until the target
// thread accepts it or ctx is done.
func (d Dispatcher) Dispatch(ctx context.Context, a input.Action) error {
	switch a.Kind {
	case input.Quit:
		return d.app.SendCtx(ctx, app.Exit{})
	case input.Write:
		return d.screen.SendCtx(ctx, screen.WriteCharacter{Bytes: a.Bytes})
	case input.SwitchToMode:
		return d.app.SendCtx(ctx, app.SetState{State: app.State{InputMode: a.Mode}})
	case input.Resize:
		return d.screen.SendCtx(ctx, resizeFor(a.Dir))
	case input.SwitchFocus:
		return d.screen.SendCtx(ctx, screen.MoveFocus{})
	case input.MoveFocus:
		return d.screen.SendCtx(ctx, moveFocusFor(a.Dir))
	case input.ScrollUp:
		return d.screen.SendCtx(ctx, screen.ScrollUp{})
	case input.ScrollDown:
		return d.screen.SendCtx(ctx, screen.ScrollDown{})
	case input.ToggleFocusFullscreen:
		return d.screen.SendCtx(ctx, screen.ToggleActiveTerminalFullscreen{})
	case input.NewPane:
		switch {
		case !a.HasDir:
			return d.pty.SendCtx(ctx, pty.SpawnTerminal{})
		case a.Dir == input.Left || a.Dir == input.Right:
			return d.pty.SendCtx(ctx, pty.SpawnTerminalVertically{})
		default:
			return d.pty.SendCtx(ctx, pty.SpawnTerminalHorizontally{})
		}
	case input.CloseFocus:
		return d.screen.SendCtx(ctx, screen.CloseFocusedPane{})
	case input.NewTab:
		return d.pty.SendCtx(ctx, pty.NewTab{})
	case input.GoToNextTab:
		return d.screen.SendCtx(ctx, screen.SwitchTabNext{})
	case input.GoToPreviousTab:
		return d.screen.SendCtx(ctx, screen.SwitchTabPrev{})
	case input.CloseTab:
		return d.screen.SendCtx(ctx, screen.CloseTab{})
	}
	return fmt.Errorf("unsupported action %s", a.Kind)
}

func resizeFor(d input.Direction) screen.Instruction {
	switch d {
	case input.Left:
		return screen.ResizeLeft{}
	case input.Right:
		return screen.ResizeRight{}
	case input.Up:
		return screen.ResizeUp{}
	default:
		return screen.ResizeDown{}
	}
}

func moveFocusFor(d input.Direction) screen.Instruction {
	switch d {
	case input.Left:
		return screen.MoveFocusLeft{}
	case input.Right:
		return screen.MoveFocusRight{}
	case input.Up:
		return screen.MoveFocusUp{}
	default:
		return screen.MoveFocusDown{}
	}
}
