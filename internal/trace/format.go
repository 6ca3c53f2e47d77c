package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick from the output path
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
	}
}

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	default:
		return formatText(ev)
	}
}

// formatNDJSON formats an event as newline-delimited JSON.
func formatNDJSON(ev Event) []byte {
	type jsonEvent struct {
		Time   string `json:"time"`
		Seq    uint64 `json:"seq"`
		Kind   string `json:"kind"`
		GID    uint64 `json:"gid,omitempty"`
		Thread string `json:"thread"`
		Call   string `json:"call,omitempty"`
		Detail string `json:"detail,omitempty"`
	}

	j := jsonEvent{
		Time:   ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		GID:    ev.GID,
		Thread: ev.Thread,
		Call:   ev.Call,
		Detail: ev.Detail,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatText formats an event as human-readable text.
// Format: [seq] g<gid> thread marker call (detail)
func formatText(ev Event) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%6d] g%-4d %s ", ev.Seq, ev.GID, ev.Thread)

	switch ev.Kind {
	case KindThreadStart:
		sb.WriteString("\u2192") // →
	case KindThreadExit:
		sb.WriteString("\u2190") // ←
	case KindInstruction:
		sb.WriteString("\u2022") // •
	case KindPanic:
		sb.WriteString("\u2717") // ✗
	}

	if ev.Call != "" {
		sb.WriteString(" ")
		sb.WriteString(ev.Call)
	}

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
