package screen

import (
	"bytes"
	"strings"
	"testing"

	"loom/internal/errctx"
	"loom/internal/pty"
)

func TestContextOfIsTotal(t *testing.T) {
	variants := []struct {
		instr Instruction
		want  errctx.ScreenContext
	}{
		{PtyOutput{ID: 1, Bytes: []byte("x")}, errctx.ScreenHandlePtyEvent},
		{Render{}, errctx.ScreenRender},
		{NewPane{ID: 1}, errctx.ScreenNewPane},
		{HorizontalSplit{ID: 1}, errctx.ScreenHorizontalSplit},
		{VerticalSplit{ID: 1}, errctx.ScreenVerticalSplit},
		{WriteCharacter{Bytes: []byte("a")}, errctx.ScreenWriteCharacter},
		{ResizeLeft{}, errctx.ScreenResizeLeft},
		{ResizeRight{}, errctx.ScreenResizeRight},
		{ResizeDown{}, errctx.ScreenResizeDown},
		{ResizeUp{}, errctx.ScreenResizeUp},
		{MoveFocus{}, errctx.ScreenMoveFocus},
		{MoveFocusLeft{}, errctx.ScreenMoveFocusLeft},
		{MoveFocusDown{}, errctx.ScreenMoveFocusDown},
		{MoveFocusUp{}, errctx.ScreenMoveFocusUp},
		{MoveFocusRight{}, errctx.ScreenMoveFocusRight},
		{Quit{}, errctx.ScreenQuit},
		{ScrollUp{}, errctx.ScreenScrollUp},
		{ScrollDown{}, errctx.ScreenScrollDown},
		{ClearScroll{}, errctx.ScreenClearScroll},
		{CloseFocusedPane{}, errctx.ScreenCloseFocusedPane},
		{ToggleActiveTerminalFullscreen{}, errctx.ScreenToggleActiveTerminalFullscreen},
		{SetSelectable{ID: 1}, errctx.ScreenSetSelectable},
		{SetInvisibleBorders{ID: 1}, errctx.ScreenSetInvisibleBorders},
		{SetMaxHeight{ID: 1, Height: 3}, errctx.ScreenSetMaxHeight},
		{ClosePane{ID: 1}, errctx.ScreenClosePane},
		{ApplyLayout{Path: "a.yaml"}, errctx.ScreenApplyLayout},
		{NewTab{ID: 1}, errctx.ScreenNewTab},
		{SwitchTabNext{}, errctx.ScreenSwitchTabNext},
		{SwitchTabPrev{}, errctx.ScreenSwitchTabPrev},
		{CloseTab{}, errctx.ScreenCloseTab},
	}
	all := errctx.ScreenContexts()
	if len(variants) != len(all) {
		t.Fatalf("%d variants for %d call sites", len(variants), len(all))
	}
	seen := make(map[errctx.ScreenContext]bool)
	for _, tc := range variants {
		v, want := tc.instr, tc.want
		got := ContextOf(v)
		if got != want {
			t.Fatalf("%T maps to %s, want %s", v, got, want)
		}
		if seen[got] {
			t.Fatalf("call site %s reached twice", got)
		}
		seen[got] = true
		if Tag(v) != errctx.Screen(want) {
			t.Fatalf("Tag(%T) = %s", v, Tag(v).Plain())
		}
	}
}

func TestPanesAndTabs(t *testing.T) {
	s := New(120, 40, nil)
	if _, ok := s.Focused(); ok {
		t.Fatalf("empty screen has no focus")
	}
	s.NewPane(1, SplitAuto)
	s.NewPane(2, SplitVertical)
	s.NewPane(3, SplitHorizontal)
	if s.TabCount() != 1 || s.PaneCount() != 3 {
		t.Fatalf("tabs=%d panes=%d", s.TabCount(), s.PaneCount())
	}
	if id, _ := s.Focused(); id != 3 {
		t.Fatalf("new pane should take focus, got %d", id)
	}
	if p := s.Pane(1); p.Cols != 60 {
		t.Fatalf("vertical split should halve the width, got %d", p.Cols)
	}

	s.MoveFocus(1)
	if id, _ := s.Focused(); id != 1 {
		t.Fatalf("focus should wrap to the first pane, got %d", id)
	}
	s.MoveFocus(-1)
	if id, _ := s.Focused(); id != 3 {
		t.Fatalf("focus should wrap backwards, got %d", id)
	}

	s.NewTab(4)
	if s.TabCount() != 2 {
		t.Fatalf("expected two tabs")
	}
	s.SwitchTab(1)
	if id, _ := s.Focused(); id != 3 {
		t.Fatalf("switching forward should wrap to the first tab, got %d", id)
	}

	if id, ok := s.CloseFocusedPane(); !ok || id != 3 {
		t.Fatalf("CloseFocusedPane = %d, %v", id, ok)
	}
	ids := s.CloseTab()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("CloseTab returned %v", ids)
	}
	if s.TabCount() != 1 {
		t.Fatalf("one tab should remain")
	}
	if !s.ClosePane(4) || s.TabCount() != 0 {
		t.Fatalf("closing the last pane should close its tab")
	}
	if s.ClosePane(4) {
		t.Fatalf("closing an unknown pane should report false")
	}
}

func TestPaneAttributes(t *testing.T) {
	s := New(80, 24, nil)
	s.NewTab(7)
	s.SetMaxHeight(7, 10)
	s.ResizeFocused(0, 5)
	p := s.Pane(7)
	if p.Rows != 10 {
		t.Fatalf("max height should cap rows, got %d", p.Rows)
	}
	s.ResizeFocused(-200, -200)
	if p.Cols != 1 || p.Rows != 1 {
		t.Fatalf("sizes should stay positive, got %dx%d", p.Cols, p.Rows)
	}
	s.SetSelectable(7, false)
	s.SetInvisibleBorders(7, true)
	if p.Selectable || !p.InvisibleBorders {
		t.Fatalf("attributes not applied: %+v", p)
	}
	s.Scroll(3)
	s.Scroll(-1)
	if p.Scroll != 2 {
		t.Fatalf("scroll = %d", p.Scroll)
	}
	s.ClearScroll()
	if p.Scroll != 0 {
		t.Fatalf("ClearScroll should reset")
	}
	s.ToggleFullscreen()
	if !s.ActiveTab().Fullscreen {
		t.Fatalf("fullscreen should toggle on")
	}
	s.ApplyLayout("layouts/default.yaml")
	if s.Layout() != "layouts/default.yaml" {
		t.Fatalf("layout not recorded")
	}
}

func TestOutputIsBounded(t *testing.T) {
	s := New(80, 24, nil)
	s.NewTab(1)
	chunk := bytes.Repeat([]byte("x"), 1024)
	for i := 0; i < 100; i++ {
		if !s.HandleOutput(1, chunk) {
			t.Fatalf("pane should exist")
		}
	}
	if got := len(s.Pane(1).Output()); got != maxPaneOutput {
		t.Fatalf("output len = %d, want %d", got, maxPaneOutput)
	}
	if s.HandleOutput(pty.TerminalID(9), chunk) {
		t.Fatalf("unknown terminal should be rejected")
	}
}

func TestRender(t *testing.T) {
	var out bytes.Buffer
	s := New(80, 24, &out)
	s.NewTab(5)
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "tab 1/1 panes 1 focus 5 frame 1") {
		t.Fatalf("unexpected frame: %q", out.String())
	}
}
