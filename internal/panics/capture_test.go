package panics

import (
	"errors"
	"path/filepath"
	"testing"
)

type stringer struct{}

func (stringer) String() string { return "from stringer" }

type badError struct{}

func (badError) Error() string { panic("no message for you") }

func TestPanicMessage(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"boom", "boom", true},
		{errors.New("bad state"), "bad state", true},
		{stringer{}, "from stringer", true},
		{42, "", false},
		{struct{}{}, "", false},
		{badError{}, "", false},
	}
	for _, tt := range tests {
		got, ok := panicMessage(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("panicMessage(%#v) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func raise() {
	panic("located")
}

func TestPanicLocationPointsAtRaiser(t *testing.T) {
	var loc *Location
	func() {
		defer func() {
			if recover() != nil {
				loc = panicLocation()
			}
		}()
		raise()
	}()
	if loc == nil {
		t.Fatalf("expected a location")
	}
	if filepath.Base(loc.File) != "capture_test.go" || loc.Line <= 0 {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestPanicLocationRuntimeError(t *testing.T) {
	var loc *Location
	func() {
		defer func() {
			if recover() != nil {
				loc = panicLocation()
			}
		}()
		var m map[string]int
		m["x"] = 1
	}()
	if loc == nil || filepath.Base(loc.File) != "capture_test.go" {
		t.Fatalf("runtime errors should resolve to the faulting frame, got %v", loc)
	}
}

func TestPanicLocationOutsidePanic(t *testing.T) {
	if loc := panicLocation(); loc != nil {
		t.Fatalf("no panic in progress, got %s", loc)
	}
}
