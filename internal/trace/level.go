package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff         Level = iota // no tracing
	LevelThread                   // start, exit, panic
	LevelInstruction              // everything
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelThread:
		return "thread"
	case LevelInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LevelOff, nil
	case "thread":
		return LevelThread, nil
	case "instruction", "all":
		return LevelInstruction, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|thread|instruction)", s)
	}
}

// ShouldEmit returns true if events of the given kind pass at this level.
func (l Level) ShouldEmit(kind Kind) bool {
	switch l {
	case LevelThread:
		return kind != KindInstruction
	case LevelInstruction:
		return true
	}
	return false
}
