package pty

import (
	"errors"
	"io"
	"os"
	"reflect"
	"testing"

	"loom/internal/errctx"
)

func TestContextOfIsTotal(t *testing.T) {
	variants := []Instruction{
		SpawnTerminal{File: "a.txt"},
		SpawnTerminalVertically{},
		SpawnTerminalHorizontally{},
		NewTab{},
		ClosePane{ID: 3},
		CloseTab{IDs: []TerminalID{1, 2}},
		Quit{},
	}
	want := errctx.PtyContexts()
	if len(variants) != len(want) {
		t.Fatalf("%d variants for %d call sites", len(variants), len(want))
	}
	seen := make(map[errctx.PtyContext]string)
	for _, v := range variants {
		c := ContextOf(v)
		name := reflect.TypeOf(v).Name()
		if prev, dup := seen[c]; dup {
			t.Fatalf("%s and %s share call site %s", prev, name, c)
		}
		seen[c] = name
		if c.String() != name {
			t.Fatalf("%s maps to %s", name, c)
		}
		if Tag(v) != errctx.Pty(c) {
			t.Fatalf("Tag(%s) = %s", name, Tag(v).Plain())
		}
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(LoopbackSpawner{Greeting: "$ "})
	id1, term1, err := m.Spawn("")
	if err != nil {
		t.Fatal(err)
	}
	id2, _, err := m.Spawn("")
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 || id1 == 0 {
		t.Fatalf("ids should be unique and non-zero: %d %d", id1, id2)
	}

	buf := make([]byte, 16)
	n, err := term1.Read(buf)
	if err != nil || string(buf[:n]) != "$ " {
		t.Fatalf("greeting = %q, %v", buf[:n], err)
	}
	if err := m.Write(id1, []byte("ls\n")); err != nil {
		t.Fatal(err)
	}
	n, err = term1.Read(buf)
	if err != nil || string(buf[:n]) != "ls\n" {
		t.Fatalf("echo = %q, %v", buf[:n], err)
	}

	if err := m.Close(id1); err != nil {
		t.Fatal(err)
	}
	if _, err := term1.Read(buf); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("read after close = %v", err)
	}
	if err := m.Write(id1, []byte("x")); !errors.Is(err, ErrUnknownTerminal) {
		t.Fatalf("write to closed terminal = %v", err)
	}
	if got := m.IDs(); len(got) != 1 || got[0] != id2 {
		t.Fatalf("IDs() = %v", got)
	}
	if err := m.CloseAll(); err != nil {
		t.Fatal(err)
	}
	if len(m.IDs()) != 0 {
		t.Fatalf("CloseAll should empty the registry")
	}
}

type failingSpawner struct{}

func (failingSpawner) Spawn(string) (Terminal, error) { return nil, io.ErrUnexpectedEOF }

func TestManagerSpawnError(t *testing.T) {
	m := NewManager(failingSpawner{})
	if _, _, err := m.Spawn(""); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped spawn error, got %v", err)
	}
}
