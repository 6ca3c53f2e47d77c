package panics

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"loom/internal/errctx"
	"loom/internal/trace"
)

const crasherEnv = "LOOM_PANICS_CRASHER"

// runCrasher is executed in a child process by TestMainThreadPanicExits.
func runCrasher() {
	r := NewRouter(Options{})
	r.BindMain()
	defer r.Handle()
	ctx := errctx.New()
	ctx.AddCall(errctx.Screen(errctx.ScreenRender))
	ctx.AddCall(errctx.Pty(errctx.PtySpawnTerminal))
	panic("boom")
}

func TestMainThreadPanicExits(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^TestMainThreadPanicExits$")
	cmd.Env = append(os.Environ(), crasherEnv+"=1")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected a non-zero exit, got %v", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	out := stdout.String()
	assertOrder(t, out, []string{"screen_thread: Render", "pty_thread: SpawnTerminal", "thread 'main'", "boom", "router_test.go:"})
}

func TestMainThreadRoutesToStdout(t *testing.T) {
	var stdout bytes.Buffer
	code := -1
	r := NewRouter(Options{Stdout: &stdout, Exit: func(c int) { code = c }})
	notified := 0
	r.Attach(NotifierFunc(func(Report, time.Duration) error { notified++; return nil }))

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.BindMain()
		defer errctx.Release()
		defer r.Handle()
		panic("boom")
	}()
	<-done

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if notified != 0 {
		t.Fatalf("main thread panics must not be sent to the supervisor")
	}
	if !strings.Contains(stdout.String(), "thread 'main' panicked at 'boom'") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

type recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (rec *recorder) NotifyPanic(r Report, _ time.Duration) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.reports = append(rec.reports, r)
	return nil
}

func (rec *recorder) all() []Report {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Report(nil), rec.reports...)
}

func TestWorkerPanicNotifiesSupervisor(t *testing.T) {
	r := NewRouter(Options{Exit: func(int) { t.Errorf("worker panics must not exit the process") }})
	rec := &recorder{}
	r.Attach(rec)

	r.Go("plugin_thread", func() {
		ctx := errctx.New()
		ctx.AddCall(errctx.Plugin(errctx.PluginDraw))
		panic(struct{}{})
	})
	waitFor(t, func() bool { return len(rec.all()) == 1 })

	rep := rec.all()[0]
	if !strings.Contains(rep.Text, "thread 'plugin_thread' panicked") {
		t.Fatalf("unexpected report: %q", rep.Text)
	}
	if !strings.Contains(rep.Text, "1. plugin_thread: Draw") {
		t.Fatalf("report should carry the trail: %q", rep.Text)
	}
	if rep.HasMessage {
		t.Fatalf("struct payload should carry no message")
	}
}

func TestNotifyFailuresAreSwallowed(t *testing.T) {
	r := NewRouter(Options{Exit: func(int) { t.Errorf("unexpected exit") }})
	r.Attach(NotifierFunc(func(Report, time.Duration) error { return errors.New("supervisor gone") }))
	runAndWait(r, "pty_thread", func() { panic("first") })

	r.Attach(NotifierFunc(func(Report, time.Duration) error { panic("closed channel") }))
	runAndWait(r, "pty_thread", func() { panic("second") })
}

func TestNoNotifierFallsBackToStderr(t *testing.T) {
	var stderr bytes.Buffer
	r := NewRouter(Options{Stderr: &stderr})
	runAndWait(r, "screen_thread", func() { panic("lost") })
	if !strings.Contains(stderr.String(), "thread 'screen_thread' panicked at 'lost'") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestConcurrentPanicsStayAttributed(t *testing.T) {
	rec := &recorder{}
	r := NewRouter(Options{})
	r.Attach(rec)

	var g errgroup.Group
	start := make(chan struct{})
	r.GoGroup(&g, "pty_thread", func() error {
		<-start
		ctx := errctx.New()
		ctx.AddCall(errctx.Pty(errctx.PtySpawnTerminal))
		ctx.AddCall(errctx.Pty(errctx.PtyNewTab))
		panic("pty down")
	})
	r.GoGroup(&g, "plugin_thread", func() error {
		<-start
		ctx := errctx.New()
		ctx.AddCall(errctx.Plugin(errctx.PluginLoad))
		panic("plugin down")
	})
	close(start)
	if err := g.Wait(); err != nil {
		t.Fatalf("recovered panics should not fail the group: %v", err)
	}

	reports := rec.all()
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	for _, rep := range reports {
		switch rep.Thread {
		case "pty_thread":
			if strings.Contains(rep.Text, "plugin_thread:") || rep.Context.Len() != 2 {
				t.Fatalf("pty report contaminated: %q", rep.Text)
			}
		case "plugin_thread":
			if strings.Contains(rep.Text, "pty_thread:") || rep.Context.Len() != 1 {
				t.Fatalf("plugin report contaminated: %q", rep.Text)
			}
		default:
			t.Fatalf("unexpected thread %q", rep.Thread)
		}
	}
}

func TestRouterTracesLifecycle(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelThread)
	r := NewRouter(Options{Tracer: ring})
	r.Attach(&recorder{})
	runAndWait(r, "ipc_server", func() {
		ctx := errctx.New()
		ctx.AddCall(errctx.IPCServer)
		panic("socket")
	})

	var kinds []trace.Kind
	for _, ev := range ring.Snapshot() {
		if ev.Thread == "ipc_server" {
			kinds = append(kinds, ev.Kind)
		}
	}
	want := []trace.Kind{trace.KindThreadStart, trace.KindPanic, trace.KindThreadExit}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestInstallOnce(t *testing.T) {
	r := NewRouter(Options{})
	first := Install(r)
	if first != nil && !errors.Is(first, ErrAlreadyInstalled) {
		t.Fatalf("unexpected error: %v", first)
	}
	if err := Install(NewRouter(Options{})); !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second install = %v, want ErrAlreadyInstalled", err)
	}
	if Installed() == nil {
		t.Fatalf("a router should be installed")
	}
}

// runAndWait returns once the router has finished with fn's panic.
func runAndWait(r *Router, name string, fn func()) {
	var g errgroup.Group
	r.GoGroup(&g, name, func() error {
		fn()
		return nil
	})
	_ = g.Wait()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
