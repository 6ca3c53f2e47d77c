// Package mux wires the multiplexer's threads together: one goroutine per
// subsystem, the async terminal streamers and the supervisor loop that runs
// on the main goroutine and decides what a worker panic means for the
// session.
package mux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"loom/internal/app"
	"loom/internal/channels"
	"loom/internal/crashstore"
	"loom/internal/errctx"
	"loom/internal/faults"
	"loom/internal/logs"
	"loom/internal/panics"
	"loom/internal/plugin"
	"loom/internal/pty"
	"loom/internal/screen"
	"loom/internal/trace"
)

// Thread names, as they appear in panic reports.
const (
	ThreadScreen = "screen"
	ThreadPty    = "pty"
	ThreadPlugin = "plugin"
	ThreadStdin  = "stdin_handler"
	ThreadIPC    = "ipc_server"
	ThreadStream = "stream_terminal_bytes"
)

// ErrWorkerPanicked is wrapped by the error Run returns when a worker panic
// ended the session.
var ErrWorkerPanicked = errors.New("worker thread panicked")

// WorkerPanicError carries the report of the panic that ended the session.
type WorkerPanicError struct {
	Report panics.Report
	ID     string // crash record ID, empty when not persisted
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("%s thread panicked", e.Report.Thread)
}

func (e *WorkerPanicError) Unwrap() error { return ErrWorkerPanicked }

// Config assembles a Runtime. Only Router is needed in practice; every other
// field has a usable zero value.
type Config struct {
	Router  *panics.Router // default: the installed router
	Spawner pty.Spawner    // default: loopback terminals
	Loader  plugin.Loader
	Plugins []string // plugin paths loaded at start

	Cols, Rows int
	Output     io.Writer    // rendered frames
	Stdin      io.Reader    // nil disables the stdin handler
	Listener   net.Listener // nil disables the IPC server

	Faults  *faults.Plan
	Crashes *crashstore.Store
	Ring    *trace.RingTracer // recent events stored with crash records
	Tracer  trace.Tracer
	Logger  *slog.Logger

	// ExitOnWorkerPanic ends the session on the first worker panic. When
	// false the panicked thread is restarted.
	ExitOnWorkerPanic bool
	// OnPanic is called on the main goroutine for every worker report.
	OnPanic func(panics.Report)

	Buffer      int           // channel capacity, default 64
	QuitTimeout time.Duration // per-thread Quit delivery, default 100ms
}

type worker struct {
	run      func(ctx context.Context) error
	detached bool // not waited for on shutdown
	oneShot  bool // never restarted after a panic
}

// Runtime is one multiplexer session.
type Runtime struct {
	cfg    Config
	router *panics.Router
	log    *slog.Logger

	screenTx channels.SenderWithContext[screen.Instruction]
	screenRx *channels.Receiver[screen.Instruction]
	ptyTx    channels.SenderWithContext[pty.Instruction]
	ptyRx    *channels.Receiver[pty.Instruction]
	pluginTx channels.SenderWithContext[plugin.Instruction]
	pluginRx *channels.Receiver[plugin.Instruction]
	appTx    app.Sender
	appRx    *app.Receiver

	screen  *screen.Screen   // screen thread only
	terms   *pty.Manager     // spawned on the pty thread, written by screen
	plugins *plugin.Registry // plugin thread only
	state   app.State        // main thread only

	ctx     context.Context
	cancel  context.CancelFunc
	g       *errgroup.Group
	order   []string
	workers map[string]worker
}

// New creates a runtime. Channels exist from this point on, so senders
// obtained before Run are valid.
func New(cfg Config) *Runtime {
	if cfg.Router == nil {
		cfg.Router = panics.Installed()
	}
	if cfg.Router == nil {
		cfg.Router = panics.NewRouter(panics.Options{})
	}
	if cfg.Spawner == nil {
		cfg.Spawner = pty.LoopbackSpawner{}
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.QuitTimeout <= 0 {
		cfg.QuitTimeout = 100 * time.Millisecond
	}
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop
	}
	if cfg.Logger == nil {
		cfg.Logger = logs.Discard()
	}

	rt := &Runtime{
		cfg:     cfg,
		router:  cfg.Router,
		log:     cfg.Logger,
		screen:  screen.New(cfg.Cols, cfg.Rows, cfg.Output),
		terms:   pty.NewManager(cfg.Spawner),
		plugins: plugin.NewRegistry(cfg.Loader),
	}
	rt.screenTx, rt.screenRx = channels.New[screen.Instruction](cfg.Buffer, screen.Tag)
	rt.ptyTx, rt.ptyRx = channels.New[pty.Instruction](cfg.Buffer, pty.Tag)
	rt.pluginTx, rt.pluginRx = channels.New[plugin.Instruction](cfg.Buffer, plugin.Tag)
	rt.appTx, rt.appRx = app.NewChannel(cfg.Buffer)
	rt.useTracer(cfg.Tracer)

	rt.workers = map[string]worker{
		ThreadScreen: {run: rt.screenLoop},
		ThreadPty:    {run: rt.ptyLoop},
		ThreadPlugin: {run: rt.pluginLoop},
	}
	rt.order = []string{ThreadScreen, ThreadPty, ThreadPlugin}
	if cfg.Listener != nil {
		rt.workers[ThreadIPC] = worker{run: rt.ipcLoop}
		rt.order = append(rt.order, ThreadIPC)
	}
	if cfg.Stdin != nil {
		rt.workers[ThreadStdin] = worker{run: rt.stdinLoop, detached: true, oneShot: true}
		rt.order = append(rt.order, ThreadStdin)
	}
	return rt
}

func (rt *Runtime) useTracer(t trace.Tracer) {
	rt.cfg.Tracer = t
	for _, rx := range []interface{ SetTracer(trace.Tracer) }{rt.screenRx, rt.ptyRx, rt.pluginRx, rt.appRx} {
		rx.SetTracer(t)
	}
}

// App returns the supervisor channel.
func (rt *Runtime) App() app.Sender { return rt.appTx }

// Plugin returns the plugin thread's channel.
func (rt *Runtime) Plugin() channels.SenderWithContext[plugin.Instruction] { return rt.pluginTx }

// Dispatcher returns a dispatcher feeding this runtime's threads.
func (rt *Runtime) Dispatcher() Dispatcher {
	return NewDispatcher(rt.screenTx, rt.ptyTx, rt.appTx)
}

// Run starts the worker threads, opens the first tab and supervises until an
// Exit instruction, ctx cancellation, or a worker panic that ends the
// session. The calling goroutine becomes the main thread; a panic on it is
// fatal. Without a configured tracer, the one carried by ctx is used.
func (rt *Runtime) Run(ctx context.Context) error {
	if !rt.cfg.Tracer.Enabled() {
		rt.useTracer(trace.FromContext(ctx))
	}
	rt.router.BindMain()
	rt.router.Attach(app.Notifier{To: rt.appTx})
	defer rt.router.Attach(nil)

	rt.ctx, rt.cancel = context.WithCancel(ctx)
	defer rt.cancel()
	rt.g = new(errgroup.Group)
	for _, name := range rt.order {
		rt.start(name)
	}

	for _, path := range rt.cfg.Plugins {
		if err := rt.pluginTx.SendCtx(rt.ctx, plugin.Load{Path: path}); err != nil {
			return rt.finish(fmt.Errorf("load plugin %s: %w", path, err))
		}
	}
	if err := rt.ptyTx.SendCtx(rt.ctx, pty.NewTab{}); err != nil {
		return rt.finish(fmt.Errorf("open first tab: %w", err))
	}
	return rt.finish(rt.supervise(rt.ctx))
}

func (rt *Runtime) start(name string) {
	w := rt.workers[name]
	ctx := rt.ctx
	if w.detached {
		rt.router.Go(name, func() {
			if err := w.run(ctx); err != nil {
				rt.log.Warn("thread stopped", "thread", name, "error", err)
			}
		})
		return
	}
	rt.router.GoGroup(rt.g, name, func() error {
		if err := w.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// finish asks every worker to quit, stops the stragglers and waits.
func (rt *Runtime) finish(err error) error {
	_ = rt.screenTx.TrySend(screen.Quit{}, rt.cfg.QuitTimeout)
	_ = rt.ptyTx.TrySend(pty.Quit{}, rt.cfg.QuitTimeout)
	_ = rt.pluginTx.TrySend(plugin.Quit{}, rt.cfg.QuitTimeout)
	rt.cancel()
	waitErr := rt.g.Wait()
	if err != nil {
		return err
	}
	return waitErr
}

func (rt *Runtime) supervise(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-rt.appRx.Chan():
			if !ok {
				return nil
			}
			instr := rt.appRx.Accept(msg)
			rt.cfg.Faults.Check(app.Tag(instr))
			switch instr := instr.(type) {
			case app.GetState:
				reply(ctx, instr.Reply, rt.state)
			case app.SetState:
				rt.state = instr.State
			case app.Exit:
				return nil
			case app.Error:
				if err := rt.workerPanicked(instr.Report); err != nil {
					return err
				}
			}
		}
	}
}

func (rt *Runtime) workerPanicked(rep panics.Report) error {
	rt.log.Error("worker panicked",
		"thread", rep.Thread,
		"message", rep.Message,
		"calls", trail(rep.Context))

	var id string
	if rt.cfg.Crashes != nil {
		var lines []string
		if rt.cfg.Ring != nil {
			lines = rt.cfg.Ring.Lines()
		}
		rec, err := rt.cfg.Crashes.Save(rep, lines)
		if err != nil {
			rt.log.Warn("crash report not saved", "error", err)
		} else {
			id = rec.ID
			rt.log.Info("crash report saved", "id", id, "dir", rt.cfg.Crashes.Dir())
		}
	}
	if rt.cfg.OnPanic != nil {
		rt.cfg.OnPanic(rep)
	}

	if rt.cfg.ExitOnWorkerPanic {
		return &WorkerPanicError{Report: rep, ID: id}
	}
	w, ok := rt.workers[rep.Thread]
	switch {
	case !ok:
	case w.oneShot:
		// a new scanner would drop whatever the old one had buffered
		rt.log.Warn("thread not restarted", "thread", rep.Thread)
	default:
		rt.log.Warn("restarting thread", "thread", rep.Thread)
		rt.start(rep.Thread)
	}
	return nil
}

func trail(ctx errctx.ErrorContext) string {
	calls := ctx.Calls()
	parts := make([]string, len(calls))
	for i, c := range calls {
		parts[i] = c.Plain()
	}
	return strings.Join(parts, " > ")
}

func reply[T any](ctx context.Context, ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}
