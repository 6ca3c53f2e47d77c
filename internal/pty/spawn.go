package pty

import (
	"os"
	"os/exec"
	"sync"

	creackpty "github.com/creack/pty"
)

// ShellSpawner starts real programs on pseudo-terminals.
type ShellSpawner struct {
	Shell  string // default $SHELL, then /bin/sh
	Editor string // default $EDITOR, then vi
	Rows   uint16
	Cols   uint16
}

// Spawn starts the shell, or the editor on file.
func (s ShellSpawner) Spawn(file string) (Terminal, error) {
	var cmd *exec.Cmd
	if file != "" {
		cmd = exec.Command(firstNonEmpty(s.Editor, os.Getenv("EDITOR"), "vi"), file)
	} else {
		cmd = exec.Command(firstNonEmpty(s.Shell, os.Getenv("SHELL"), "/bin/sh"))
	}
	cmd.Env = append(os.Environ(), "LOOM=1")

	var (
		f   *os.File
		err error
	)
	if s.Rows > 0 && s.Cols > 0 {
		f, err = creackpty.StartWithSize(cmd, &creackpty.Winsize{Rows: s.Rows, Cols: s.Cols})
	} else {
		f, err = creackpty.Start(cmd)
	}
	if err != nil {
		return nil, err
	}
	return &shellTerminal{File: f, cmd: cmd}, nil
}

type shellTerminal struct {
	*os.File
	cmd *exec.Cmd
}

func (t *shellTerminal) Close() error {
	err := t.File.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_, _ = t.cmd.Process.Wait()
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// LoopbackSpawner creates in-memory terminals that echo their input back as
// output, after an optional greeting.
type LoopbackSpawner struct {
	Greeting string
}

// Spawn creates a loopback terminal.
func (s LoopbackSpawner) Spawn(string) (Terminal, error) {
	t := &loopback{}
	t.cond = sync.NewCond(&t.mu)
	if s.Greeting != "" {
		t.buf = append(t.buf, s.Greeting...)
	}
	return t, nil
}

// loopback never blocks writers; readers wait for data or Close.
type loopback struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func (t *loopback) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.buf) == 0 && !t.closed {
		t.cond.Wait()
	}
	if len(t.buf) == 0 {
		return 0, os.ErrClosed
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *loopback) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, os.ErrClosed
	}
	t.buf = append(t.buf, p...)
	t.cond.Broadcast()
	return len(p), nil
}

func (t *loopback) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cond.Broadcast()
	return nil
}
