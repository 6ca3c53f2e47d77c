package plugin

import "loom/internal/errctx"

// Instruction is a message handled by the plugin thread. The set is closed:
// every variant embeds instruction and reports its call site.
type Instruction interface {
	Context() errctx.PluginContext
	pluginInstruction()
}

type instruction struct{}

func (instruction) pluginInstruction() {}

type (
	// Load instantiates the plugin at Path and replies with its ID. A failed
	// load replies with a zero ID.
	Load struct {
		instruction
		Path  string
		Reply chan<- ID
	}
	// Draw renders plugin ID into a Rows x Cols block and replies with it.
	Draw struct {
		instruction
		ID         ID
		Rows, Cols int
		Reply      chan<- string
	}
	// Input delivers bytes to a single plugin.
	Input struct {
		instruction
		ID    ID
		Bytes []byte
	}
	// GlobalInput delivers bytes to every loaded plugin.
	GlobalInput struct {
		instruction
		Bytes []byte
	}
	Unload struct {
		instruction
		ID ID
	}
	Quit struct{ instruction }
)

func (Load) Context() errctx.PluginContext        { return errctx.PluginLoad }
func (Draw) Context() errctx.PluginContext        { return errctx.PluginDraw }
func (Input) Context() errctx.PluginContext       { return errctx.PluginInput }
func (GlobalInput) Context() errctx.PluginContext { return errctx.PluginGlobalInput }
func (Unload) Context() errctx.PluginContext      { return errctx.PluginUnload }
func (Quit) Context() errctx.PluginContext        { return errctx.PluginQuit }

// ContextOf returns the call site of i.
func ContextOf(i Instruction) errctx.PluginContext {
	return i.Context()
}

// Tag returns the error-context frame recorded when i is received.
func Tag(i Instruction) errctx.ContextType {
	return errctx.Plugin(i.Context())
}
