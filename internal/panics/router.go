package panics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"loom/internal/errctx"
	"loom/internal/trace"
)

// MainThread is the name the supervisory goroutine is bound under.
const MainThread = "main"

// DefaultNotifyTimeout bounds how long a panicking goroutine waits for the
// supervisor to take its report.
const DefaultNotifyTimeout = 250 * time.Millisecond

// ErrAlreadyInstalled is returned by Install when a router is already in place.
var ErrAlreadyInstalled = errors.New("panics: router already installed")

// Notifier delivers worker reports to the supervisor. Implementations must
// give up after timeout.
type Notifier interface {
	NotifyPanic(r Report, timeout time.Duration) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(r Report, timeout time.Duration) error

// NotifyPanic calls f.
func (f NotifierFunc) NotifyPanic(r Report, timeout time.Duration) error {
	return f(r, timeout)
}

// Options configures a Router. Zero values select the defaults.
type Options struct {
	MainThread    string        // default MainThread
	Stdout        io.Writer     // main-thread reports (default os.Stdout)
	Stderr        io.Writer     // worker reports when no notifier is attached (default os.Stderr)
	Exit          func(code int) // default os.Exit
	NotifyTimeout time.Duration // default DefaultNotifyTimeout
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

// Router decides what happens to a captured panic.
type Router struct {
	main     string
	stdout   io.Writer
	stderr   io.Writer
	exit     func(int)
	timeout  time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
	notifier atomic.Pointer[notifierBox]
}

type notifierBox struct{ n Notifier }

// NewRouter creates a Router.
func NewRouter(opts Options) *Router {
	r := &Router{
		main:    opts.MainThread,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		exit:    opts.Exit,
		timeout: opts.NotifyTimeout,
		tracer:  opts.Tracer,
		logger:  opts.Logger,
	}
	if r.main == "" {
		r.main = MainThread
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	if r.exit == nil {
		r.exit = os.Exit
	}
	if r.timeout <= 0 {
		r.timeout = DefaultNotifyTimeout
	}
	if r.tracer == nil {
		r.tracer = trace.Nop
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Attach sets the supervisor notifier. Call it before spawning workers.
func (r *Router) Attach(n Notifier) {
	if n == nil {
		r.notifier.Store(nil)
		return
	}
	r.notifier.Store(&notifierBox{n: n})
}

// BindMain binds the calling goroutine as the supervisory thread.
func (r *Router) BindMain() {
	errctx.Bind(r.main)
}

// Handle must be deferred directly. It recovers a panic on the calling
// goroutine and routes its report; it does nothing when there is no panic.
func (r *Router) Handle() {
	if v := recover(); v != nil {
		r.route(v)
	}
}

// Go runs fn on a new goroutine bound to name.
func (r *Router) Go(name string, fn func()) {
	go r.run(name, fn)
}

func (r *Router) run(name string, fn func()) {
	r.enter(name)
	defer r.leave(name)
	defer r.Handle()
	fn()
}

// GoGroup runs fn on g bound to name. A panic in fn is routed like any other
// and the goroutine returns nil, so the group is not cancelled by it.
func (r *Router) GoGroup(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() (err error) {
		r.enter(name)
		defer r.leave(name)
		defer r.Handle()
		return fn()
	})
}

func (r *Router) enter(name string) {
	errctx.Bind(name)
	trace.Emit(r.tracer, trace.Event{Kind: trace.KindThreadStart, GID: errctx.GoroutineID(), Thread: name})
}

func (r *Router) leave(name string) {
	trace.Emit(r.tracer, trace.Event{Kind: trace.KindThreadExit, GID: errctx.GoroutineID(), Thread: name})
	errctx.Release()
}

// route runs with the panic still unwinding below it.
func (r *Router) route(v any) {
	rep := r.safeCapture(v)

	trace.Emit(r.tracer, trace.Event{
		Kind:   trace.KindPanic,
		GID:    errctx.GoroutineID(),
		Thread: rep.Thread,
		Call:   lastCall(rep.Context),
		Detail: rep.Message,
	})

	if rep.Thread == r.main {
		// Best-effort write - the process is going down either way
		_, _ = fmt.Fprintln(r.stdout, rep.Text) //nolint:errcheck
		r.exit(1)
		return
	}
	r.notify(rep)
}

func (r *Router) safeCapture(v any) (rep Report) {
	defer func() {
		if recover() != nil {
			rep = minimal(errctx.ThreadName(), errctx.Current())
		}
	}()
	return capture(v)
}

func (r *Router) notify(rep Report) {
	defer func() { _ = recover() }()

	box := r.notifier.Load()
	if box == nil {
		_, _ = fmt.Fprintln(r.stderr, rep.Text) //nolint:errcheck
		return
	}
	if err := box.n.NotifyPanic(rep, r.timeout); err != nil {
		r.logger.Debug("panic report dropped", "thread", rep.Thread, "error", err)
	}
}

func lastCall(ctx errctx.ErrorContext) string {
	calls := ctx.Calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1].Plain()
}

var installed atomic.Pointer[Router]

// Install registers r as the process-wide router used by Handle. It can be
// called once; later calls return ErrAlreadyInstalled.
func Install(r *Router) error {
	if r == nil {
		return errors.New("panics: nil router")
	}
	if !installed.CompareAndSwap(nil, r) {
		return ErrAlreadyInstalled
	}
	return nil
}

// Installed returns the process-wide router, or nil.
func Installed() *Router {
	return installed.Load()
}

var fallback = NewRouter(Options{})

// Handle must be deferred directly. It routes a panic through the installed
// router, or through a default one when nothing was installed.
func Handle() {
	if v := recover(); v != nil {
		r := installed.Load()
		if r == nil {
			r = fallback
		}
		r.route(v)
	}
}
