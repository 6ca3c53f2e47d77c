// Package ui renders the live thread monitor.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"loom/internal/trace"
)

type monitorModel struct {
	title   string
	events  <-chan trace.Event
	spinner spinner.Model
	prog    progress.Model
	threads []threadItem
	index   map[uint64]int
	width   int
	done    bool
}

type threadItem struct {
	gid    uint64
	name   string
	status string
	call   string
	detail string
}

type eventMsg trace.Event
type doneMsg struct{}

// NewMonitorModel returns a Bubble Tea model showing each thread's status
// and last recorded call. It quits once events is closed.
func NewMonitorModel(title string, events <-chan trace.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &monitorModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[uint64]int),
		width:   80,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(trace.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("stopped: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := 28
	callWidth := m.width - nameWidth - 16
	if callWidth < 20 {
		callWidth = 20
	}
	for _, item := range m.threads {
		name := truncate(fmt.Sprintf("%s#%d", item.name, item.gid), nameWidth)
		status := styleStatus(item.status).Render(fmt.Sprintf("%9s", item.status))
		call := item.call
		if item.detail != "" {
			call = call + " (" + item.detail + ")"
		}
		line := fmt.Sprintf("  %s %-*s %s", status, nameWidth, name, truncate(call, callWidth))
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *monitorModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *monitorModel) item(ev trace.Event) *threadItem {
	idx, ok := m.index[ev.GID]
	if !ok {
		idx = len(m.threads)
		m.threads = append(m.threads, threadItem{gid: ev.GID, name: ev.Thread, status: "running"})
		m.index[ev.GID] = idx
	}
	return &m.threads[idx]
}

func (m *monitorModel) applyEvent(ev trace.Event) tea.Cmd {
	switch ev.Kind {
	case trace.KindThreadStart:
		it := m.item(ev)
		it.name, it.status = ev.Thread, "running"
	case trace.KindInstruction:
		it := m.item(ev)
		if ev.Thread != "" {
			it.name = ev.Thread
		}
		it.call = ev.Call
	case trace.KindPanic:
		it := m.item(ev)
		it.status, it.call, it.detail = "panicked", ev.Call, ev.Detail
	case trace.KindThreadExit:
		it := m.item(ev)
		if it.status != "panicked" {
			it.status = "exited"
		}
	default:
		return nil
	}
	return m.prog.SetPercent(m.finished())
}

// finished is the share of seen threads that are no longer running.
func (m *monitorModel) finished() float64 {
	if len(m.threads) == 0 {
		return 0
	}
	n := 0
	for _, it := range m.threads {
		if it.status != "running" {
			n++
		}
	}
	return float64(n) / float64(len(m.threads))
}

// Summary lists thread names by status, for printing after the program ends.
func Summary(model tea.Model) map[string][]string {
	m, ok := model.(*monitorModel)
	if !ok {
		return nil
	}
	out := make(map[string][]string)
	for _, it := range m.threads {
		out[it.status] = append(out[it.status], it.name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "exited":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "panicked":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "running":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
