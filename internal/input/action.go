// Package input defines the actions a user can take and their textual form.
package input

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is a pane-relative direction.
type Direction uint8

const (
	Left Direction = iota
	Right
	Up
	Down
)

var directionNames = [...]string{"left", "right", "up", "down"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection accepts left, right, up or down.
func ParseDirection(s string) (Direction, error) {
	for i, n := range directionNames {
		if strings.EqualFold(s, n) {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// InputMode selects how keystrokes are interpreted.
type InputMode uint8

const (
	ModeNormal InputMode = iota
	ModeCommand
	ModeCommandPersistent
	ModeExiting
)

var modeNames = [...]string{"normal", "command", "command-persistent", "exiting"}

func (m InputMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("InputMode(%d)", m)
}

// ParseInputMode accepts the names printed by InputMode.String.
func ParseInputMode(s string) (InputMode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return InputMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown input mode %q", s)
}

// Kind enumerates actions.
type Kind uint8

const (
	Quit Kind = iota
	Write
	SwitchToMode
	Resize
	SwitchFocus
	MoveFocus
	ScrollUp
	ScrollDown
	ToggleFocusFullscreen
	NewPane
	CloseFocus
	NewTab
	GoToNextTab
	GoToPreviousTab
	CloseTab
	kindCount
)

// verbs are the command words accepted by ParseAction, indexed by Kind.
var verbs = [kindCount]string{
	"quit",
	"write",
	"mode",
	"resize",
	"switch-focus",
	"move-focus",
	"scroll-up",
	"scroll-down",
	"fullscreen",
	"new-pane",
	"close-focus",
	"new-tab",
	"next-tab",
	"prev-tab",
	"close-tab",
}

func (k Kind) String() string {
	if k < kindCount {
		return verbs[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Action is one user request. Only the fields relevant to Kind are set:
// Bytes for Write, Mode for SwitchToMode, Dir for the directional kinds.
// NewPane without HasDir picks the biggest free space.
type Action struct {
	Kind   Kind
	Bytes  []byte
	Mode   InputMode
	Dir    Direction
	HasDir bool
}

// String renders a in the syntax ParseAction accepts.
func (a Action) String() string {
	switch a.Kind {
	case Write:
		return "write " + strconv.Quote(string(a.Bytes))
	case SwitchToMode:
		return "mode " + a.Mode.String()
	case Resize, SwitchFocus, MoveFocus:
		return a.Kind.String() + " " + a.Dir.String()
	case NewPane:
		if a.HasDir {
			return "new-pane " + a.Dir.String()
		}
	}
	return a.Kind.String()
}

// ParseAction parses one command line such as "resize left", "new-pane" or
// `write "ls\n"`. Write accepts either a Go-quoted string or the raw rest of
// the line.
func ParseAction(line string) (Action, error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	kind, ok := lookupVerb(verb)
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", verb)
	}
	a := Action{Kind: kind}
	switch kind {
	case Write:
		if rest == "" {
			return Action{}, fmt.Errorf("write: missing text")
		}
		if strings.HasPrefix(rest, `"`) {
			s, err := strconv.Unquote(rest)
			if err != nil {
				return Action{}, fmt.Errorf("write: %w", err)
			}
			rest = s
		}
		a.Bytes = []byte(rest)
	case SwitchToMode:
		m, err := ParseInputMode(rest)
		if err != nil {
			return Action{}, fmt.Errorf("mode: %w", err)
		}
		a.Mode = m
	case Resize, SwitchFocus, MoveFocus:
		d, err := ParseDirection(rest)
		if err != nil {
			return Action{}, fmt.Errorf("%s: %w", verb, err)
		}
		a.Dir = d
	case NewPane:
		if rest != "" {
			d, err := ParseDirection(rest)
			if err != nil {
				return Action{}, fmt.Errorf("%s: %w", verb, err)
			}
			a.Dir, a.HasDir = d, true
		}
	default:
		if rest != "" {
			return Action{}, fmt.Errorf("%s: unexpected argument %q", verb, rest)
		}
	}
	return a, nil
}

func lookupVerb(v string) (Kind, bool) {
	for k, name := range verbs {
		if v == name {
			return Kind(k), true
		}
	}
	return 0, false
}
