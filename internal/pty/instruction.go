package pty

import "loom/internal/errctx"

// Instruction is a message handled by the pty thread. The set is closed:
// every variant embeds instruction and reports its call site.
type Instruction interface {
	Context() errctx.PtyContext
	ptyInstruction()
}

type instruction struct{}

func (instruction) ptyInstruction() {}

type (
	// SpawnTerminal opens a terminal in the biggest free space. File, when
	// set, is opened instead of the default shell.
	SpawnTerminal struct {
		instruction
		File string
	}
	SpawnTerminalVertically struct {
		instruction
		File string
	}
	SpawnTerminalHorizontally struct {
		instruction
		File string
	}
	NewTab    struct{ instruction }
	ClosePane struct {
		instruction
		ID TerminalID
	}
	CloseTab struct {
		instruction
		IDs []TerminalID
	}
	Quit struct{ instruction }
)

func (SpawnTerminal) Context() errctx.PtyContext           { return errctx.PtySpawnTerminal }
func (SpawnTerminalVertically) Context() errctx.PtyContext { return errctx.PtySpawnTerminalVertically }
func (SpawnTerminalHorizontally) Context() errctx.PtyContext {
	return errctx.PtySpawnTerminalHorizontally
}
func (NewTab) Context() errctx.PtyContext    { return errctx.PtyNewTab }
func (ClosePane) Context() errctx.PtyContext { return errctx.PtyClosePane }
func (CloseTab) Context() errctx.PtyContext  { return errctx.PtyCloseTab }
func (Quit) Context() errctx.PtyContext      { return errctx.PtyQuit }

// ContextOf returns the call site of i.
func ContextOf(i Instruction) errctx.PtyContext {
	return i.Context()
}

// Tag returns the error-context frame recorded when i is received.
func Tag(i Instruction) errctx.ContextType {
	return errctx.Pty(i.Context())
}
