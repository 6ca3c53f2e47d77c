// Package config loads loom.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "loom.toml"

// Config is the decoded configuration. Zero values mean "use the default".
type Config struct {
	Log   LogConfig   `toml:"log"`
	Crash CrashConfig `toml:"crash"`
	UI    UIConfig    `toml:"ui"`
	IPC   IPCConfig   `toml:"ipc"`
	Pty   PtyConfig   `toml:"pty"`
	Debug DebugConfig `toml:"debug"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Journal bool   `toml:"journal"`
}

type CrashConfig struct {
	Dir               string   `toml:"dir"`
	Keep              int      `toml:"keep"`
	NotifyTimeout     Duration `toml:"notify_timeout"`
	ExitOnWorkerPanic *bool    `toml:"exit_on_worker_panic"`
}

type UIConfig struct {
	Color   string `toml:"color"` // auto, on or off
	Monitor bool   `toml:"monitor"`
}

type IPCConfig struct {
	Socket string `toml:"socket"`
}

type PtyConfig struct {
	Shell string `toml:"shell"`
	Rows  int    `toml:"rows"`
	Cols  int    `toml:"cols"`
}

type DebugConfig struct {
	PanicOn    []string `toml:"panic_on"`
	Trace      string   `toml:"trace"`
	TraceLevel string   `toml:"trace_level"`
	TraceRing  int      `toml:"trace_ring"`
}

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %s", v)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	exit := true
	return Config{
		Log:   LogConfig{Level: "warn"},
		Crash: CrashConfig{Keep: 50, NotifyTimeout: Duration{250 * time.Millisecond}, ExitOnWorkerPanic: &exit},
		UI:    UIConfig{Color: "auto"},
		Pty:   PtyConfig{Rows: 24, Cols: 80},
		Debug: DebugConfig{TraceLevel: "thread", TraceRing: 256},
	}
}

// ExitOnWorkerPanic reports whether a worker panic ends the session.
func (c Config) ExitOnWorkerPanic() bool {
	return c.Crash.ExitOnWorkerPanic == nil || *c.Crash.ExitOnWorkerPanic
}

// Find walks up from startDir looking for loom.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. An empty path searches from the working
// directory and falls back to the defaults when nothing is found.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		found, ok, err := Find(".")
		if err != nil || !ok {
			return cfg, err
		}
		path = found
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.UI.Color {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("[ui].color must be auto, on or off, got %q", c.UI.Color)
	}
	if c.Crash.Keep < 0 {
		return fmt.Errorf("[crash].keep must not be negative")
	}
	if c.Pty.Rows < 0 || c.Pty.Cols < 0 {
		return fmt.Errorf("[pty] size must not be negative")
	}
	if c.Debug.TraceRing < 0 {
		return fmt.Errorf("[debug].trace_ring must not be negative")
	}
	return nil
}

// SocketPath returns the IPC socket path, defaulting to a per-user file in
// the runtime or temp directory.
func (c Config) SocketPath() string {
	if c.IPC.Socket != "" {
		return c.IPC.Socket
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("loom-%d.sock", os.Getuid()))
}
