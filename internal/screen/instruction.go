package screen

import (
	"loom/internal/errctx"
	"loom/internal/pty"
)

// Instruction is a message handled by the screen thread. The set is closed:
// every variant embeds instruction and reports its call site.
type Instruction interface {
	Context() errctx.ScreenContext
	screenInstruction()
}

type instruction struct{}

func (instruction) screenInstruction() {}

type (
	// PtyOutput carries bytes read from a terminal.
	PtyOutput struct {
		instruction
		ID    pty.TerminalID
		Bytes []byte
	}
	Render  struct{ instruction }
	NewPane struct {
		instruction
		ID pty.TerminalID
	}
	HorizontalSplit struct {
		instruction
		ID pty.TerminalID
	}
	VerticalSplit struct {
		instruction
		ID pty.TerminalID
	}
	// WriteCharacter forwards input to the focused terminal.
	WriteCharacter struct {
		instruction
		Bytes []byte
	}
	ResizeLeft                     struct{ instruction }
	ResizeRight                    struct{ instruction }
	ResizeDown                     struct{ instruction }
	ResizeUp                       struct{ instruction }
	MoveFocus                      struct{ instruction }
	MoveFocusLeft                  struct{ instruction }
	MoveFocusDown                  struct{ instruction }
	MoveFocusUp                    struct{ instruction }
	MoveFocusRight                 struct{ instruction }
	Quit                           struct{ instruction }
	ScrollUp                       struct{ instruction }
	ScrollDown                     struct{ instruction }
	ClearScroll                    struct{ instruction }
	CloseFocusedPane               struct{ instruction }
	ToggleActiveTerminalFullscreen struct{ instruction }
	SetSelectable                  struct {
		instruction
		ID         pty.TerminalID
		Selectable bool
	}
	SetInvisibleBorders struct {
		instruction
		ID        pty.TerminalID
		Invisible bool
	}
	SetMaxHeight struct {
		instruction
		ID     pty.TerminalID
		Height int
	}
	ClosePane struct {
		instruction
		ID pty.TerminalID
	}
	ApplyLayout struct {
		instruction
		Path string
	}
	NewTab struct {
		instruction
		ID pty.TerminalID
	}
	SwitchTabNext struct{ instruction }
	SwitchTabPrev struct{ instruction }
	CloseTab      struct{ instruction }
)

func (PtyOutput) Context() errctx.ScreenContext       { return errctx.ScreenHandlePtyEvent }
func (Render) Context() errctx.ScreenContext          { return errctx.ScreenRender }
func (NewPane) Context() errctx.ScreenContext         { return errctx.ScreenNewPane }
func (HorizontalSplit) Context() errctx.ScreenContext { return errctx.ScreenHorizontalSplit }
func (VerticalSplit) Context() errctx.ScreenContext   { return errctx.ScreenVerticalSplit }
func (WriteCharacter) Context() errctx.ScreenContext  { return errctx.ScreenWriteCharacter }
func (ResizeLeft) Context() errctx.ScreenContext      { return errctx.ScreenResizeLeft }
func (ResizeRight) Context() errctx.ScreenContext     { return errctx.ScreenResizeRight }
func (ResizeDown) Context() errctx.ScreenContext      { return errctx.ScreenResizeDown }
func (ResizeUp) Context() errctx.ScreenContext        { return errctx.ScreenResizeUp }
func (MoveFocus) Context() errctx.ScreenContext       { return errctx.ScreenMoveFocus }
func (MoveFocusLeft) Context() errctx.ScreenContext   { return errctx.ScreenMoveFocusLeft }
func (MoveFocusDown) Context() errctx.ScreenContext   { return errctx.ScreenMoveFocusDown }
func (MoveFocusUp) Context() errctx.ScreenContext     { return errctx.ScreenMoveFocusUp }
func (MoveFocusRight) Context() errctx.ScreenContext  { return errctx.ScreenMoveFocusRight }
func (Quit) Context() errctx.ScreenContext            { return errctx.ScreenQuit }
func (ScrollUp) Context() errctx.ScreenContext        { return errctx.ScreenScrollUp }
func (ScrollDown) Context() errctx.ScreenContext      { return errctx.ScreenScrollDown }
func (ClearScroll) Context() errctx.ScreenContext     { return errctx.ScreenClearScroll }
func (CloseFocusedPane) Context() errctx.ScreenContext {
	return errctx.ScreenCloseFocusedPane
}
func (ToggleActiveTerminalFullscreen) Context() errctx.ScreenContext {
	return errctx.ScreenToggleActiveTerminalFullscreen
}
func (SetSelectable) Context() errctx.ScreenContext { return errctx.ScreenSetSelectable }
func (SetInvisibleBorders) Context() errctx.ScreenContext {
	return errctx.ScreenSetInvisibleBorders
}
func (SetMaxHeight) Context() errctx.ScreenContext  { return errctx.ScreenSetMaxHeight }
func (ClosePane) Context() errctx.ScreenContext     { return errctx.ScreenClosePane }
func (ApplyLayout) Context() errctx.ScreenContext   { return errctx.ScreenApplyLayout }
func (NewTab) Context() errctx.ScreenContext        { return errctx.ScreenNewTab }
func (SwitchTabNext) Context() errctx.ScreenContext { return errctx.ScreenSwitchTabNext }
func (SwitchTabPrev) Context() errctx.ScreenContext { return errctx.ScreenSwitchTabPrev }
func (CloseTab) Context() errctx.ScreenContext      { return errctx.ScreenCloseTab }

// ContextOf returns the call site of i.
func ContextOf(i Instruction) errctx.ScreenContext {
	return i.Context()
}

// Tag returns the error-context frame recorded when i is received.
func Tag(i Instruction) errctx.ContextType {
	return errctx.Screen(i.Context())
}
