// Package screen holds the screen thread's instruction set and the tab and
// pane model it maintains.
package screen

import (
	"fmt"
	"io"

	"loom/internal/pty"
)

// maxPaneOutput bounds the scrollback kept per pane.
const maxPaneOutput = 64 << 10

// Split selects how a new pane divides the focused one.
type Split uint8

const (
	SplitAuto       Split = iota // divide along the longer side
	SplitHorizontal              // new pane below
	SplitVertical                // new pane to the right
)

// Pane is one terminal shown on screen.
type Pane struct {
	ID               pty.TerminalID
	Cols, Rows       int
	Scroll           int
	Selectable       bool
	InvisibleBorders bool
	MaxHeight        int
	output           []byte
}

// Output returns the retained terminal output.
func (p *Pane) Output() []byte {
	return p.output
}

// Tab is an ordered set of panes with one of them focused.
type Tab struct {
	Panes      []*Pane
	Active     int
	Fullscreen bool
}

func (t *Tab) focused() *Pane {
	if len(t.Panes) == 0 {
		return nil
	}
	return t.Panes[t.Active]
}

// Screen is the state owned by the screen thread.
type Screen struct {
	cols, rows int
	tabs       []*Tab
	active     int
	layout     string
	frames     int
	out        io.Writer
}

// New creates an empty screen of the given size. Rendered frames go to out
// (io.Discard when nil).
func New(cols, rows int, out io.Writer) *Screen {
	if out == nil {
		out = io.Discard
	}
	return &Screen{cols: cols, rows: rows, out: out}
}

func (s *Screen) tab() *Tab {
	if len(s.tabs) == 0 {
		return nil
	}
	return s.tabs[s.active]
}

// NewTab opens a tab holding a single pane for terminal id and focuses it.
func (s *Screen) NewTab(id pty.TerminalID) {
	s.tabs = append(s.tabs, &Tab{Panes: []*Pane{{ID: id, Cols: s.cols, Rows: s.rows, Selectable: true}}})
	s.active = len(s.tabs) - 1
}

// NewPane splits the focused pane and shows terminal id in the new half.
// Without any tab it opens the first one.
func (s *Screen) NewPane(id pty.TerminalID, split Split) {
	t := s.tab()
	if t == nil {
		s.NewTab(id)
		return
	}
	p := &Pane{ID: id, Cols: s.cols, Rows: s.rows, Selectable: true}
	if f := t.focused(); f != nil {
		if split == SplitAuto {
			split = SplitHorizontal
			if f.Cols > f.Rows*2 {
				split = SplitVertical
			}
		}
		switch split {
		case SplitVertical:
			p.Rows = f.Rows
			p.Cols = f.Cols / 2
			f.Cols -= p.Cols
		default:
			p.Cols = f.Cols
			p.Rows = f.Rows / 2
			f.Rows -= p.Rows
		}
	}
	t.Panes = append(t.Panes, p)
	t.Active = len(t.Panes) - 1
	t.Fullscreen = false
}

func (s *Screen) pane(id pty.TerminalID) *Pane {
	for _, t := range s.tabs {
		for _, p := range t.Panes {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

// HandleOutput appends terminal output to the pane showing id. It reports
// false when no pane shows that terminal.
func (s *Screen) HandleOutput(id pty.TerminalID, b []byte) bool {
	p := s.pane(id)
	if p == nil {
		return false
	}
	p.output = append(p.output, b...)
	if over := len(p.output) - maxPaneOutput; over > 0 {
		p.output = append(p.output[:0], p.output[over:]...)
	}
	return true
}

// Focused returns the terminal of the focused pane.
func (s *Screen) Focused() (pty.TerminalID, bool) {
	t := s.tab()
	if t == nil || len(t.Panes) == 0 {
		return 0, false
	}
	return t.focused().ID, true
}

// ResizeFocused grows (positive) or shrinks (negative) the focused pane.
// Sizes never drop below one cell.
func (s *Screen) ResizeFocused(dCols, dRows int) {
	t := s.tab()
	if t == nil || len(t.Panes) == 0 {
		return
	}
	p := t.focused()
	p.Cols = max(1, p.Cols+dCols)
	p.Rows = max(1, p.Rows+dRows)
	if p.MaxHeight > 0 {
		p.Rows = min(p.Rows, p.MaxHeight)
	}
}

// MoveFocus moves focus delta panes forward, wrapping around.
func (s *Screen) MoveFocus(delta int) {
	t := s.tab()
	if t == nil || len(t.Panes) == 0 {
		return
	}
	n := len(t.Panes)
	t.Active = ((t.Active+delta)%n + n) % n
}

// Scroll moves the focused pane's viewport; positive values scroll up.
func (s *Screen) Scroll(delta int) {
	t := s.tab()
	if t == nil || len(t.Panes) == 0 {
		return
	}
	p := t.focused()
	p.Scroll = max(0, p.Scroll+delta)
}

// ClearScroll returns the focused pane to the bottom of its output.
func (s *Screen) ClearScroll() {
	if t := s.tab(); t != nil && len(t.Panes) > 0 {
		t.focused().Scroll = 0
	}
}

// ToggleFullscreen toggles fullscreen for the focused pane.
func (s *Screen) ToggleFullscreen() {
	if t := s.tab(); t != nil && len(t.Panes) > 0 {
		t.Fullscreen = !t.Fullscreen
	}
}

// SetSelectable marks whether pane id can take focus.
func (s *Screen) SetSelectable(id pty.TerminalID, v bool) {
	if p := s.pane(id); p != nil {
		p.Selectable = v
	}
}

// SetInvisibleBorders hides or shows the borders of pane id.
func (s *Screen) SetInvisibleBorders(id pty.TerminalID, v bool) {
	if p := s.pane(id); p != nil {
		p.InvisibleBorders = v
	}
}

// SetMaxHeight caps the height of pane id; zero removes the cap.
func (s *Screen) SetMaxHeight(id pty.TerminalID, h int) {
	if p := s.pane(id); p != nil {
		p.MaxHeight = max(0, h)
		if p.MaxHeight > 0 {
			p.Rows = min(p.Rows, p.MaxHeight)
		}
	}
}

// ClosePane removes pane id wherever it is. Tabs left empty are closed.
func (s *Screen) ClosePane(id pty.TerminalID) bool {
	for ti, t := range s.tabs {
		for pi, p := range t.Panes {
			if p.ID != id {
				continue
			}
			t.Panes = append(t.Panes[:pi], t.Panes[pi+1:]...)
			if t.Active >= len(t.Panes) {
				t.Active = max(0, len(t.Panes)-1)
			}
			if len(t.Panes) == 0 {
				s.removeTab(ti)
			}
			return true
		}
	}
	return false
}

// CloseFocusedPane removes the focused pane and returns its terminal.
func (s *Screen) CloseFocusedPane() (pty.TerminalID, bool) {
	id, ok := s.Focused()
	if !ok {
		return 0, false
	}
	s.ClosePane(id)
	return id, true
}

// ApplyLayout records the layout file the tab was built from.
func (s *Screen) ApplyLayout(path string) {
	s.layout = path
}

// SwitchTab moves delta tabs forward, wrapping around.
func (s *Screen) SwitchTab(delta int) {
	n := len(s.tabs)
	if n == 0 {
		return
	}
	s.active = ((s.active+delta)%n + n) % n
}

// CloseTab closes the active tab and returns the terminals it showed.
func (s *Screen) CloseTab() []pty.TerminalID {
	t := s.tab()
	if t == nil {
		return nil
	}
	ids := make([]pty.TerminalID, 0, len(t.Panes))
	for _, p := range t.Panes {
		ids = append(ids, p.ID)
	}
	s.removeTab(s.active)
	return ids
}

func (s *Screen) removeTab(i int) {
	s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
	if s.active >= len(s.tabs) {
		s.active = max(0, len(s.tabs)-1)
	}
}

// Render writes a one-line summary of the screen state.
func (s *Screen) Render() error {
	s.frames++
	id, _ := s.Focused()
	_, err := fmt.Fprintf(s.out, "tab %d/%d panes %d focus %d frame %d\n",
		min(s.active+1, len(s.tabs)), len(s.tabs), s.PaneCount(), id, s.frames)
	return err
}

// TabCount returns the number of open tabs.
func (s *Screen) TabCount() int { return len(s.tabs) }

// ActiveTab returns the active tab, or nil.
func (s *Screen) ActiveTab() *Tab { return s.tab() }

// PaneCount returns the number of panes across all tabs.
func (s *Screen) PaneCount() int {
	n := 0
	for _, t := range s.tabs {
		n += len(t.Panes)
	}
	return n
}

// Pane returns the pane showing terminal id, or nil.
func (s *Screen) Pane(id pty.TerminalID) *Pane { return s.pane(id) }

// Frames returns how many frames have been rendered.
func (s *Screen) Frames() int { return s.frames }

// Layout returns the applied layout path.
func (s *Screen) Layout() string { return s.layout }
