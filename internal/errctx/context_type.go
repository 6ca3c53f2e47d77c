package errctx

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Thread identifies the subsystem that owns a call site.
type Thread uint8

const (
	ThreadNone Thread = iota
	ThreadScreen
	ThreadPty
	ThreadPlugin
	ThreadApp
	ThreadIPCServer
	ThreadStdinHandler
	ThreadAsyncTask
)

// Label returns the name the thread is reported under.
func (t Thread) Label() string {
	switch t {
	case ThreadScreen:
		return "screen_thread"
	case ThreadPty:
		return "pty_thread"
	case ThreadPlugin:
		return "plugin_thread"
	case ThreadApp:
		return "main_thread"
	case ThreadIPCServer:
		return "ipc_server"
	case ThreadStdinHandler:
		return "stdin_handler_thread"
	case ThreadAsyncTask:
		return "stream_terminal_bytes"
	default:
		return ""
	}
}

// ContextType is a single frame of an ErrorContext: the owning thread plus,
// for subsystem threads, the instruction it was handling.
// The zero value is Empty.
type ContextType struct {
	thread Thread
	call   uint8
}

var (
	// Empty marks an unused ErrorContext slot.
	Empty = ContextType{}
	// IPCServer marks input accepted by the IPC listener.
	IPCServer = ContextType{thread: ThreadIPCServer}
	// StdinHandler marks input accepted from the controlling terminal.
	StdinHandler = ContextType{thread: ThreadStdinHandler}
	// AsyncTask marks work done by a terminal streaming task.
	AsyncTask = ContextType{thread: ThreadAsyncTask}
)

func Screen(c ScreenContext) ContextType { return ContextType{thread: ThreadScreen, call: uint8(c)} }
func Pty(c PtyContext) ContextType       { return ContextType{thread: ThreadPty, call: uint8(c)} }
func Plugin(c PluginContext) ContextType { return ContextType{thread: ThreadPlugin, call: uint8(c)} }
func App(c AppContext) ContextType       { return ContextType{thread: ThreadApp, call: uint8(c)} }

// Thread returns the owning thread, ThreadNone for Empty.
func (c ContextType) Thread() Thread { return c.thread }

// IsEmpty reports whether c is the Empty sentinel.
func (c ContextType) IsEmpty() bool { return c == Empty }

// Call returns the name of the call site within its thread.
func (c ContextType) Call() string {
	switch c.thread {
	case ThreadScreen:
		return ScreenContext(c.call).String()
	case ThreadPty:
		return PtyContext(c.call).String()
	case ThreadPlugin:
		return PluginContext(c.call).String()
	case ThreadApp:
		return AppContext(c.call).String()
	case ThreadIPCServer, ThreadStdinHandler:
		return "AcceptInput"
	case ThreadAsyncTask:
		return "AsyncTask"
	default:
		return ""
	}
}

var (
	threadColor = color.New(color.FgMagenta, color.Bold)
	callColor   = color.New(color.FgGreen)
)

// String renders the frame as "<thread>: <call>", colored when color output
// is enabled. Empty renders as "".
func (c ContextType) String() string {
	if c.IsEmpty() {
		return ""
	}
	return threadColor.Sprint(c.thread.Label()+":") + " " + callColor.Sprint(c.Call())
}

// Plain renders the frame without color codes.
func (c ContextType) Plain() string {
	if c.IsEmpty() {
		return ""
	}
	return c.thread.Label() + ": " + c.Call()
}

var threadAliases = map[string]Thread{
	"screen":                ThreadScreen,
	"screen_thread":         ThreadScreen,
	"pty":                   ThreadPty,
	"pty_thread":            ThreadPty,
	"plugin":                ThreadPlugin,
	"plugin_thread":         ThreadPlugin,
	"wasm":                  ThreadPlugin,
	"app":                   ThreadApp,
	"main":                  ThreadApp,
	"main_thread":           ThreadApp,
	"ipc":                   ThreadIPCServer,
	"ipc_server":            ThreadIPCServer,
	"stdin":                 ThreadStdinHandler,
	"stdin_handler":         ThreadStdinHandler,
	"stdin_handler_thread":  ThreadStdinHandler,
	"async":                 ThreadAsyncTask,
	"stream_terminal_bytes": ThreadAsyncTask,
}

// ParseContextType parses "thread:Call" specs such as "screen:Render" or
// "pty_thread: SpawnTerminal". Threads without call sites ("ipc", "stdin",
// "async") accept an optional call name.
func ParseContextType(s string) (ContextType, error) {
	threadPart, callPart, hasCall := strings.Cut(strings.TrimSpace(s), ":")
	threadPart = strings.ToLower(strings.TrimSpace(threadPart))
	callPart = strings.TrimSpace(callPart)

	thread, ok := threadAliases[threadPart]
	if !ok {
		return Empty, fmt.Errorf("unknown thread %q in call site %q", threadPart, s)
	}

	var names []string
	switch thread {
	case ThreadScreen:
		names = screenContextNames[:]
	case ThreadPty:
		names = ptyContextNames[:]
	case ThreadPlugin:
		names = pluginContextNames[:]
	case ThreadApp:
		names = appContextNames[:]
	default:
		ct := ContextType{thread: thread}
		if hasCall && callPart != "" && !strings.EqualFold(callPart, ct.Call()) {
			return Empty, fmt.Errorf("thread %s has no call site %q", thread.Label(), callPart)
		}
		return ct, nil
	}

	if !hasCall || callPart == "" {
		return Empty, fmt.Errorf("call site %q needs a call name (e.g. %s:%s)", s, threadPart, names[0])
	}
	idx, ok := lookupCall(names, callPart)
	if !ok {
		return Empty, fmt.Errorf("thread %s has no call site %q", thread.Label(), callPart)
	}
	return ContextType{thread: thread, call: idx}, nil
}

// All lists every non-empty call site, grouped by thread.
func All() []ContextType {
	out := make([]ContextType, 0, int(screenContextCount)+int(ptyContextCount)+int(pluginContextCount)+int(appContextCount)+3)
	for _, c := range ScreenContexts() {
		out = append(out, Screen(c))
	}
	for _, c := range PtyContexts() {
		out = append(out, Pty(c))
	}
	for _, c := range PluginContexts() {
		out = append(out, Plugin(c))
	}
	for _, c := range AppContexts() {
		out = append(out, App(c))
	}
	return append(out, IPCServer, StdinHandler, AsyncTask)
}
