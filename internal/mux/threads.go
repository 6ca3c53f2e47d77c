package mux

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"loom/internal/channels"
	"loom/internal/errctx"
	"loom/internal/faults"
	"loom/internal/input"
	"loom/internal/ipc"
	"loom/internal/plugin"
	"loom/internal/pty"
	"loom/internal/screen"
)

// serve receives instructions until handle asks to stop, the channel closes
// or ctx is done. Every instruction is recorded before the fault plan is
// consulted, so an injected panic carries its own call site.
func serve[T any](ctx context.Context, rx *channels.Receiver[T], tag func(T) errctx.ContextType, plan *faults.Plan, handle func(T) (stop bool)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-rx.Chan():
			if !ok {
				return nil
			}
			instr := rx.Accept(msg)
			plan.Check(tag(instr))
			if handle(instr) {
				return nil
			}
		}
	}
}

func (rt *Runtime) screenLoop(ctx context.Context) error {
	return serve(ctx, rt.screenRx, screen.Tag, rt.cfg.Faults, func(i screen.Instruction) bool {
		return rt.handleScreen(ctx, i)
	})
}

func (rt *Runtime) handleScreen(ctx context.Context, instr screen.Instruction) bool {
	s := rt.screen
	switch i := instr.(type) {
	case screen.PtyOutput:
		s.HandleOutput(i.ID, i.Bytes)
	case screen.Render:
		if err := s.Render(); err != nil {
			rt.log.Debug("render failed", "error", err)
		}
	case screen.NewPane:
		s.NewPane(i.ID, screen.SplitAuto)
	case screen.HorizontalSplit:
		s.NewPane(i.ID, screen.SplitHorizontal)
	case screen.VerticalSplit:
		s.NewPane(i.ID, screen.SplitVertical)
	case screen.WriteCharacter:
		if id, ok := s.Focused(); ok {
			if err := rt.terms.Write(id, i.Bytes); err != nil {
				rt.log.Debug("write to terminal failed", "terminal", id, "error", err)
			}
		}
	case screen.ResizeLeft:
		s.ResizeFocused(-1, 0)
	case screen.ResizeRight:
		s.ResizeFocused(1, 0)
	case screen.ResizeDown:
		s.ResizeFocused(0, 1)
	case screen.ResizeUp:
		s.ResizeFocused(0, -1)
	case screen.MoveFocus, screen.MoveFocusRight, screen.MoveFocusDown:
		s.MoveFocus(1)
	case screen.MoveFocusLeft, screen.MoveFocusUp:
		s.MoveFocus(-1)
	case screen.Quit:
		return true
	case screen.ScrollUp:
		s.Scroll(1)
	case screen.ScrollDown:
		s.Scroll(-1)
	case screen.ClearScroll:
		s.ClearScroll()
	case screen.CloseFocusedPane:
		if id, ok := s.CloseFocusedPane(); ok {
			_ = rt.ptyTx.SendCtx(ctx, pty.ClosePane{ID: id})
		}
	case screen.ToggleActiveTerminalFullscreen:
		s.ToggleFullscreen()
	case screen.SetSelectable:
		s.SetSelectable(i.ID, i.Selectable)
	case screen.SetInvisibleBorders:
		s.SetInvisibleBorders(i.ID, i.Invisible)
	case screen.SetMaxHeight:
		s.SetMaxHeight(i.ID, i.Height)
	case screen.ClosePane:
		s.ClosePane(i.ID)
	case screen.ApplyLayout:
		s.ApplyLayout(i.Path)
	case screen.NewTab:
		s.NewTab(i.ID)
	case screen.SwitchTabNext:
		s.SwitchTab(1)
	case screen.SwitchTabPrev:
		s.SwitchTab(-1)
	case screen.CloseTab:
		if ids := s.CloseTab(); len(ids) > 0 {
			_ = rt.ptyTx.SendCtx(ctx, pty.CloseTab{IDs: ids})
		}
	}
	return false
}

func (rt *Runtime) ptyLoop(ctx context.Context) error {
	defer func() {
		if err := rt.terms.CloseAll(); err != nil {
			rt.log.Debug("closing terminals", "error", err)
		}
	}()
	return serve(ctx, rt.ptyRx, pty.Tag, rt.cfg.Faults, func(i pty.Instruction) bool {
		return rt.handlePty(ctx, i)
	})
}

func (rt *Runtime) handlePty(ctx context.Context, instr pty.Instruction) bool {
	switch i := instr.(type) {
	case pty.SpawnTerminal:
		rt.spawn(ctx, i.File, func(id pty.TerminalID) screen.Instruction { return screen.NewPane{ID: id} })
	case pty.SpawnTerminalVertically:
		rt.spawn(ctx, i.File, func(id pty.TerminalID) screen.Instruction { return screen.VerticalSplit{ID: id} })
	case pty.SpawnTerminalHorizontally:
		rt.spawn(ctx, i.File, func(id pty.TerminalID) screen.Instruction { return screen.HorizontalSplit{ID: id} })
	case pty.NewTab:
		rt.spawn(ctx, "", func(id pty.TerminalID) screen.Instruction { return screen.NewTab{ID: id} })
	case pty.ClosePane:
		rt.closeTerminal(i.ID)
	case pty.CloseTab:
		for _, id := range i.IDs {
			rt.closeTerminal(id)
		}
	case pty.Quit:
		return true
	}
	return false
}

// spawn starts a terminal, tells the screen where to show it, then starts
// streaming its output.
func (rt *Runtime) spawn(ctx context.Context, file string, show func(pty.TerminalID) screen.Instruction) {
	id, term, err := rt.terms.Spawn(file)
	if err != nil {
		rt.log.Warn("spawn failed", "error", err)
		return
	}
	if err := rt.screenTx.SendCtx(ctx, show(id)); err != nil {
		rt.closeTerminal(id)
		return
	}
	rt.stream(ctx, id, term)
}

func (rt *Runtime) closeTerminal(id pty.TerminalID) {
	if err := rt.terms.Close(id); err != nil {
		rt.log.Debug("close terminal", "terminal", id, "error", err)
	}
}

// stream runs an async task forwarding terminal output to the screen. The
// task inherits the pty thread's context and records AsyncTask on top.
func (rt *Runtime) stream(ctx context.Context, id pty.TerminalID, term pty.Terminal) {
	parent := errctx.Current()
	rt.router.Go(ThreadStream, func() {
		ec := parent
		ec.AddCall(errctx.AsyncTask)
		rt.cfg.Faults.Check(errctx.AsyncTask)

		buf := make([]byte, 4096)
		for {
			n, err := term.Read(buf)
			if n > 0 {
				out := bytes.Clone(buf[:n])
				if rt.screenTx.SendCtx(ctx, screen.PtyOutput{ID: id, Bytes: out}) != nil {
					return
				}
				if rt.screenTx.SendCtx(ctx, screen.Render{}) != nil {
					return
				}
			}
			if err != nil {
				if ctx.Err() == nil {
					_ = rt.screenTx.SendCtx(ctx, screen.ClosePane{ID: id})
				}
				return
			}
		}
	})
}

func (rt *Runtime) pluginLoop(ctx context.Context) error {
	return serve(ctx, rt.pluginRx, plugin.Tag, rt.cfg.Faults, func(i plugin.Instruction) bool {
		return rt.handlePlugin(ctx, i)
	})
}

func (rt *Runtime) handlePlugin(ctx context.Context, instr plugin.Instruction) bool {
	switch i := instr.(type) {
	case plugin.Load:
		id, err := rt.plugins.Load(i.Path)
		if err != nil {
			rt.log.Warn("plugin not loaded", "error", err)
		}
		reply(ctx, i.Reply, id)
	case plugin.Draw:
		out, err := rt.plugins.Draw(i.ID, i.Rows, i.Cols)
		if err != nil {
			rt.log.Debug("draw", "error", err)
		}
		reply(ctx, i.Reply, out)
	case plugin.Input:
		if err := rt.plugins.Input(i.ID, i.Bytes); err != nil {
			rt.log.Debug("plugin input", "error", err)
		}
	case plugin.GlobalInput:
		rt.plugins.Broadcast(i.Bytes)
	case plugin.Unload:
		if err := rt.plugins.Unload(i.ID); err != nil {
			rt.log.Debug("unload", "error", err)
		}
	case plugin.Quit:
		return true
	}
	return false
}

// handleLine runs one textual action. Each line starts a fresh trail so
// that long sessions do not saturate the context.
func (rt *Runtime) handleLine(ctx context.Context, source errctx.ContextType, line string) error {
	var ec errctx.ErrorContext
	ec.AddCall(source)
	rt.cfg.Faults.Check(source)

	a, err := input.ParseAction(line)
	if err != nil {
		return err
	}
	return rt.Dispatcher().Dispatch(ctx, a)
}

func (rt *Runtime) stdinLoop(ctx context.Context) error {
	sc := bufio.NewScanner(rt.cfg.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := rt.handleLine(ctx, errctx.StdinHandler, line); err != nil {
			rt.log.Warn("input rejected", "line", line, "error", err)
		}
	}
	return sc.Err()
}

func (rt *Runtime) ipcLoop(ctx context.Context) error {
	return ipc.Serve(ctx, rt.cfg.Listener, func(line string) error {
		err := rt.handleLine(ctx, errctx.IPCServer, line)
		if err != nil {
			rt.log.Info("ipc request rejected", "line", line, "error", err)
		}
		return err
	})
}
