package errctx

import (
	"strings"

	"fortio.org/safecast"
)

// ScreenContext identifies a screen instruction.
type ScreenContext uint8

const (
	ScreenHandlePtyEvent ScreenContext = iota
	ScreenRender
	ScreenNewPane
	ScreenHorizontalSplit
	ScreenVerticalSplit
	ScreenWriteCharacter
	ScreenResizeLeft
	ScreenResizeRight
	ScreenResizeDown
	ScreenResizeUp
	ScreenMoveFocus
	ScreenMoveFocusLeft
	ScreenMoveFocusDown
	ScreenMoveFocusUp
	ScreenMoveFocusRight
	ScreenQuit
	ScreenScrollUp
	ScreenScrollDown
	ScreenClearScroll
	ScreenCloseFocusedPane
	ScreenToggleActiveTerminalFullscreen
	ScreenSetSelectable
	ScreenSetInvisibleBorders
	ScreenSetMaxHeight
	ScreenClosePane
	ScreenApplyLayout
	ScreenNewTab
	ScreenSwitchTabNext
	ScreenSwitchTabPrev
	ScreenCloseTab
	screenContextCount
)

var screenContextNames = [screenContextCount]string{
	"HandlePtyEvent",
	"Render",
	"NewPane",
	"HorizontalSplit",
	"VerticalSplit",
	"WriteCharacter",
	"ResizeLeft",
	"ResizeRight",
	"ResizeDown",
	"ResizeUp",
	"MoveFocus",
	"MoveFocusLeft",
	"MoveFocusDown",
	"MoveFocusUp",
	"MoveFocusRight",
	"Quit",
	"ScrollUp",
	"ScrollDown",
	"ClearScroll",
	"CloseFocusedPane",
	"ToggleActiveTerminalFullscreen",
	"SetSelectable",
	"SetInvisibleBorders",
	"SetMaxHeight",
	"ClosePane",
	"ApplyLayout",
	"NewTab",
	"SwitchTabNext",
	"SwitchTabPrev",
	"CloseTab",
}

func (c ScreenContext) String() string {
	if c < screenContextCount {
		return screenContextNames[c]
	}
	return "unknown"
}

// ScreenContexts lists every screen call site in declaration order.
func ScreenContexts() []ScreenContext {
	out := make([]ScreenContext, 0, screenContextCount)
	for c := ScreenContext(0); c < screenContextCount; c++ {
		out = append(out, c)
	}
	return out
}

// PtyContext identifies a pty instruction.
type PtyContext uint8

const (
	PtySpawnTerminal PtyContext = iota
	PtySpawnTerminalVertically
	PtySpawnTerminalHorizontally
	PtyNewTab
	PtyClosePane
	PtyCloseTab
	PtyQuit
	ptyContextCount
)

var ptyContextNames = [ptyContextCount]string{
	"SpawnTerminal",
	"SpawnTerminalVertically",
	"SpawnTerminalHorizontally",
	"NewTab",
	"ClosePane",
	"CloseTab",
	"Quit",
}

func (c PtyContext) String() string {
	if c < ptyContextCount {
		return ptyContextNames[c]
	}
	return "unknown"
}

// PtyContexts lists every pty call site in declaration order.
func PtyContexts() []PtyContext {
	out := make([]PtyContext, 0, ptyContextCount)
	for c := PtyContext(0); c < ptyContextCount; c++ {
		out = append(out, c)
	}
	return out
}

// PluginContext identifies a plugin instruction.
type PluginContext uint8

const (
	PluginLoad PluginContext = iota
	PluginDraw
	PluginInput
	PluginGlobalInput
	PluginUnload
	PluginQuit
	pluginContextCount
)

var pluginContextNames = [pluginContextCount]string{
	"Load",
	"Draw",
	"Input",
	"GlobalInput",
	"Unload",
	"Quit",
}

func (c PluginContext) String() string {
	if c < pluginContextCount {
		return pluginContextNames[c]
	}
	return "unknown"
}

// PluginContexts lists every plugin call site in declaration order.
func PluginContexts() []PluginContext {
	out := make([]PluginContext, 0, pluginContextCount)
	for c := PluginContext(0); c < pluginContextCount; c++ {
		out = append(out, c)
	}
	return out
}

// AppContext identifies an application supervisor instruction.
type AppContext uint8

const (
	AppGetState AppContext = iota
	AppSetState
	AppExit
	AppError
	appContextCount
)

var appContextNames = [appContextCount]string{
	"GetState",
	"SetState",
	"Exit",
	"Error",
}

func (c AppContext) String() string {
	if c < appContextCount {
		return appContextNames[c]
	}
	return "unknown"
}

// AppContexts lists every supervisor call site in declaration order.
func AppContexts() []AppContext {
	out := make([]AppContext, 0, appContextCount)
	for c := AppContext(0); c < appContextCount; c++ {
		out = append(out, c)
	}
	return out
}

// lookupCall finds a sub-tag index by case-insensitive name.
func lookupCall(names []string, name string) (uint8, bool) {
	for i, n := range names {
		if !strings.EqualFold(n, name) {
			continue
		}
		idx, err := safecast.Conv[uint8](i)
		if err != nil {
			return 0, false
		}
		return idx, true
	}
	return 0, false
}
