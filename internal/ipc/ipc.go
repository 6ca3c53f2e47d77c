// Package ipc carries textual actions over a unix socket. Each request line
// gets one reply line: "ok" or "error: <reason>".
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// IdleTimeout bounds how long the server waits for the next line of a
// connection.
const IdleTimeout = 5 * time.Second

// Handler executes one request line.
type Handler func(line string) error

// Listen opens a unix socket at path, replacing a stale socket file.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return l, nil
}

// Serve accepts connections until l is closed or ctx is done. Connections are
// handled one at a time on the calling goroutine; the one being served is
// closed when ctx is done. It returns nil when stopped through ctx.
func Serve(ctx context.Context, l net.Listener, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		serveConn(ctx, conn, h)
	}
}

func serveConn(ctx context.Context, conn net.Conn, h Handler) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()
	sc := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(IdleTimeout))
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		reply := "ok"
		if err := h(line); err != nil {
			reply = "error: " + err.Error()
		}
		if _, err := w.WriteString(reply + "\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// Send writes each line to the server at path and waits for its reply. The
// first error reply stops the exchange.
func Send(ctx context.Context, path string, lines ...string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("connect %s: %w", path, err)
	}
	defer func() { _ = conn.Close() }()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	rd := bufio.NewReader(conn)
	for _, line := range lines {
		if _, err := fmt.Fprintln(conn, line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
		reply, err := rd.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reply to %q: %w", line, err)
		}
		reply = strings.TrimSpace(reply)
		if reason, isErr := strings.CutPrefix(reply, "error: "); isErr {
			return fmt.Errorf("%s: %s", line, reason)
		}
	}
	return nil
}
