package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer is the main interface for emitting trace events.
type Tracer interface {
	// Emit records a trace event. Must be goroutine-safe.
	Emit(ev Event)

	// Flush ensures all buffered events are written.
	Flush() error

	// Close flushes and releases resources.
	Close() error

	// Level returns the current tracing level.
	Level() Level

	// Enabled returns true if tracing is active (Level > LevelOff).
	Enabled() bool
}

// Config holds tracer configuration.
type Config struct {
	Level      Level     // tracing level
	Format     Format    // output format (FormatAuto picks from OutputPath)
	Output     io.Writer // for stream output (if nil, use OutputPath)
	OutputPath string    // alternative: file path ("-" for stderr, "" for no stream)
	RingSize   int       // recent events kept for crash records (0 = 256)
}

// New creates a stream tracer (when an output is configured) alongside the
// ring tracer returned separately so callers can snapshot it.
func New(cfg Config) (Tracer, *RingTracer, error) {
	if cfg.RingSize <= 0 {
		cfg.RingSize = 256
	}
	ring := NewRingTracer(cfg.RingSize, cfg.Level)
	if cfg.Level == LevelOff {
		return Nop, ring, nil
	}
	if cfg.Output == nil && cfg.OutputPath == "" {
		return ring, ring, nil
	}

	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") {
			format = FormatNDJSON
		}
	}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, format)
	return NewMultiTracer(cfg.Level, stream, ring), ring, nil
}

// openOutput opens the output writer from config.
func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}

	if cfg.OutputPath == "-" {
		return os.Stderr, nil
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}

	return f, nil
}
