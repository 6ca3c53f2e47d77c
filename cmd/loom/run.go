package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fortio.org/safecast"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"loom/internal/crashstore"
	"loom/internal/faults"
	"loom/internal/ipc"
	"loom/internal/mux"
	"loom/internal/panics"
	"loom/internal/pty"
	"loom/internal/trace"
	"loom/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Start a multiplexer session",
	Long: `Start a session. Actions are read one per line from stdin and from the
IPC socket (see "loom send"). Worker thread panics are reported, stored and,
by default, end the session with exit status 1.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringSlice("panic-on", nil, "inject a panic at call site(s), e.g. screen:Render")
	runCmd.Flags().Bool("exit-on-worker-panic", true, "end the session on the first worker panic (otherwise restart the thread)")
	runCmd.Flags().Bool("monitor", false, "show the thread monitor instead of frames")
	runCmd.Flags().String("socket", "", "IPC socket path")
	runCmd.Flags().String("shell", "", "shell started in new panes")
	runCmd.Flags().Bool("loopback", false, "use echoing in-memory terminals instead of a shell")
	runCmd.Flags().StringSlice("plugin", nil, "plugin to load at start (repeatable)")
	runCmd.Flags().String("trace", "", "trace output file (- for stderr, *.ndjson for NDJSON)")
	runCmd.Flags().String("trace-level", "", "trace level (off|thread|instruction)")
	runCmd.Flags().String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	runCmd.Flags().Bool("dump-trace", false, "print the recent trace events to stderr if a worker panic ends the session")
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg := current.cfg
	log := current.log
	flags := cmd.Flags()

	if flags.Changed("panic-on") {
		cfg.Debug.PanicOn, _ = flags.GetStringSlice("panic-on")
	}
	if flags.Changed("exit-on-worker-panic") {
		v, _ := flags.GetBool("exit-on-worker-panic")
		cfg.Crash.ExitOnWorkerPanic = &v
	}
	if flags.Changed("monitor") {
		cfg.UI.Monitor, _ = flags.GetBool("monitor")
	}
	if v, _ := flags.GetString("socket"); v != "" {
		cfg.IPC.Socket = v
	}
	if v, _ := flags.GetString("shell"); v != "" {
		cfg.Pty.Shell = v
	}
	if v, _ := flags.GetString("trace"); v != "" {
		cfg.Debug.Trace = v
	}
	if v, _ := flags.GetString("trace-level"); v != "" {
		cfg.Debug.TraceLevel = v
	}
	plugins, _ := flags.GetStringSlice("plugin")
	loopback, _ := flags.GetBool("loopback")

	plan, err := faults.Parse(cfg.Debug.PanicOn...)
	if err != nil {
		return err
	}

	level, err := trace.ParseLevel(cfg.Debug.TraceLevel)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	formatName, _ := flags.GetString("trace-format")
	format, err := trace.ParseFormat(formatName)
	if err != nil {
		return err
	}
	tracer, ring, err := trace.New(trace.Config{
		Level:      level,
		Format:     format,
		OutputPath: cfg.Debug.Trace,
		RingSize:   cfg.Debug.TraceRing,
	})
	if err != nil {
		return err
	}
	var monitorEvents *trace.ChannelTracer
	if cfg.UI.Monitor {
		monitorEvents = trace.NewChannelTracer(1024, trace.LevelInstruction)
		tracer = trace.With(tracer, monitorEvents)
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			log.Warn("trace close", "error", err)
		}
	}()

	store, err := openStore()
	if err != nil {
		log.Warn("crash reports will not be stored", "error", err)
		store = nil
	}

	socket := cfg.SocketPath()
	listener, err := ipc.Listen(socket)
	if err != nil {
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socket)
	}()
	log.Info("listening", "socket", socket)

	rows, err := safecast.Conv[uint16](cfg.Pty.Rows)
	if err != nil {
		return fmt.Errorf("[pty].rows: %w", err)
	}
	cols, err := safecast.Conv[uint16](cfg.Pty.Cols)
	if err != nil {
		return fmt.Errorf("[pty].cols: %w", err)
	}
	var spawner pty.Spawner = pty.ShellSpawner{Shell: cfg.Pty.Shell, Rows: rows, Cols: cols}
	if loopback {
		spawner = pty.LoopbackSpawner{Greeting: "loom loopback\n"}
	}

	router := panics.NewRouter(panics.Options{
		MainThread:    panics.MainThread,
		NotifyTimeout: cfg.Crash.NotifyTimeout.Duration,
		Tracer:        tracer,
		Logger:        log,
		Stderr:        cmd.ErrOrStderr(),
	})

	var (
		stdin  io.Reader = cmd.InOrStdin()
		output io.Writer = cmd.OutOrStdout()
	)
	if cfg.UI.Monitor {
		stdin, output = nil, io.Discard
	}
	rt := mux.New(mux.Config{
		Router:            router,
		Spawner:           spawner,
		Plugins:           plugins,
		Cols:              cfg.Pty.Cols,
		Rows:              cfg.Pty.Rows,
		Output:            output,
		Stdin:             stdin,
		Listener:          listener,
		Faults:            plan,
		Crashes:           store,
		Ring:              ring,
		Logger:            log,
		ExitOnWorkerPanic: cfg.ExitOnWorkerPanic(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = trace.WithTracer(ctx, tracer)

	uiDone := make(chan struct{})
	if monitorEvents != nil {
		program := tea.NewProgram(ui.NewMonitorModel("loom session", monitorEvents.Events()), tea.WithOutput(cmd.OutOrStdout()))
		router.Go("monitor", func() {
			defer close(uiDone)
			final, err := program.Run()
			if err != nil {
				log.Warn("monitor stopped", "error", err)
				return
			}
			for status, names := range ui.Summary(final) {
				log.Info("threads", "status", status, "names", names)
			}
		})
	} else {
		close(uiDone)
	}

	err = rt.Run(ctx)
	if monitorEvents != nil {
		_ = monitorEvents.Close()
		if n := monitorEvents.Dropped(); n > 0 {
			log.Debug("monitor missed events", "count", n)
		}
	}
	<-uiDone
	if flushErr := tracer.Flush(); flushErr != nil {
		log.Warn("trace flush", "error", flushErr)
	}

	var wp *mux.WorkerPanicError
	if errors.As(err, &wp) {
		fmt.Fprintln(cmd.OutOrStdout(), wp.Report.Text)
		if wp.ID != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "crash report saved as %s (loom reports show %s)\n", wp.ID, shortID(wp.ID))
		}
		if dump, _ := flags.GetBool("dump-trace"); dump {
			if dumpErr := ring.Dump(cmd.ErrOrStderr(), format); dumpErr != nil {
				log.Warn("trace dump", "error", dumpErr)
			}
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openStore() (*crashstore.Store, error) {
	if dir := current.cfg.Crash.Dir; dir != "" {
		return crashstore.OpenDir(dir, current.cfg.Crash.Keep)
	}
	return crashstore.Open("loom", current.cfg.Crash.Keep)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
