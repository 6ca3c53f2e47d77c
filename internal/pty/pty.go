// Package pty owns the pseudo-terminals behind the multiplexer's panes: the
// pty thread's instruction set, the terminal registry and the spawners that
// create terminals.
package pty

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// TerminalID identifies a spawned terminal and the pane showing it.
type TerminalID uint32

// ErrUnknownTerminal is returned for IDs that are not (or no longer) open.
var ErrUnknownTerminal = errors.New("pty: unknown terminal")

// Terminal is one end of a pseudo-terminal: reads return program output,
// writes deliver input.
type Terminal interface {
	io.ReadWriteCloser
}

// Spawner starts terminals. file, when not empty, is opened in an editor
// instead of starting a shell.
type Spawner interface {
	Spawn(file string) (Terminal, error)
}

// Manager keeps track of open terminals. Spawning and closing happen on the
// pty thread; Write is also called from the screen thread.
type Manager struct {
	mu      sync.RWMutex
	spawner Spawner
	next    TerminalID
	terms   map[TerminalID]Terminal
}

// NewManager creates a Manager that spawns through sp.
func NewManager(sp Spawner) *Manager {
	return &Manager{spawner: sp, terms: make(map[TerminalID]Terminal)}
}

// Spawn starts a terminal and registers it under a fresh ID.
func (m *Manager) Spawn(file string) (TerminalID, Terminal, error) {
	term, err := m.spawner.Spawn(file)
	if err != nil {
		return 0, nil, fmt.Errorf("spawn terminal: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := m.next
	m.terms[id] = term
	return id, term, nil
}

// Write sends input to terminal id.
func (m *Manager) Write(id TerminalID, p []byte) error {
	m.mu.RLock()
	term, ok := m.terms[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTerminal, id)
	}
	_, err := term.Write(p)
	return err
}

// Close closes and forgets terminal id.
func (m *Manager) Close(id TerminalID) error {
	m.mu.Lock()
	term, ok := m.terms[id]
	delete(m.terms, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTerminal, id)
	}
	return term.Close()
}

// CloseAll closes every open terminal.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, id := range m.IDs() {
		if err := m.Close(id); err != nil && !errors.Is(err, ErrUnknownTerminal) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IDs returns the open terminal IDs in ascending order.
func (m *Manager) IDs() []TerminalID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]TerminalID, 0, len(m.terms))
	for id := range m.terms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
