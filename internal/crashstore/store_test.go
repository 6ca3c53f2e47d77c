package crashstore

import (
	"errors"
	"testing"
	"time"

	"loom/internal/errctx"
	"loom/internal/panics"
)

func report(thread string, at time.Time) panics.Report {
	var ctx errctx.ErrorContext
	ctx.AddCall(errctx.Pty(errctx.PtyNewTab))
	ctx.AddCall(errctx.Screen(errctx.ScreenRender))
	return panics.Report{
		Time:       at,
		Thread:     thread,
		Message:    "boom",
		HasMessage: true,
		Location:   &panics.Location{File: "screen.go", Line: 42},
		Context:    ctx,
		Text:       "Error: thread '" + thread + "' panicked",
	}
}

func TestSaveAndGet(t *testing.T) {
	s, err := OpenDir(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Save(report("screen", time.Now()), []string{"ev1", "ev2"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(rec.ID[:8])
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != rec.ID || got.Thread != "screen" || got.Line != 42 || got.File != "screen.go" {
		t.Fatalf("unexpected record %+v", got)
	}
	if len(got.Calls) != 2 || got.Calls[1] != "screen_thread: Render" {
		t.Fatalf("calls = %v", got.Calls)
	}
	if len(got.Trace) != 2 {
		t.Fatalf("trace = %v", got.Trace)
	}
	if _, err := s.Get("00000000-0000-0000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRejectsPatterns(t *testing.T) {
	s, err := OpenDir(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(report("screen", time.Now()), nil); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"*", "?", "../x", "[0-9]", "nope"} {
		if _, err := s.Get(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("Get(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestListAndPrune(t *testing.T) {
	s, err := OpenDir(t.TempDir(), 2)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Now()
	for i, thread := range []string{"screen", "pty", "plugin"} {
		if _, err := s.Save(report(thread, base.Add(time.Duration(i)*time.Second)), nil); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Thread != "plugin" || recs[1].Thread != "pty" {
		t.Fatalf("records = %+v", recs)
	}
	if n, err := s.Prune(0); err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
}

func TestDropAll(t *testing.T) {
	s, err := OpenDir(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(report("screen", time.Now()), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.DropAll(); err != nil {
		t.Fatal(err)
	}
	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty store, got %d", len(recs))
	}
}

func TestOpenUsesCacheHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	s, err := Open("loom", 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := dir + "/loom/crashes"; s.Dir() != want {
		t.Fatalf("dir = %s, want %s", s.Dir(), want)
	}
}
