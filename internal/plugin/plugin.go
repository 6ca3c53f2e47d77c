// Package plugin holds the plugin thread's instruction set and the registry
// of loaded plugins.
package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ID identifies a loaded plugin. Zero is never assigned.
type ID uint32

// ErrUnknownPlugin is returned for IDs that are not loaded.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Plugin is a loaded extension that consumes input and draws into a block
// of cells.
type Plugin interface {
	Update(input []byte)
	Render(rows, cols int) string
}

// Loader instantiates the plugin stored at path.
type Loader func(path string) (Plugin, error)

// Registry tracks loaded plugins. It is owned by the plugin thread and is
// not safe for concurrent use.
type Registry struct {
	load    Loader
	next    ID
	plugins map[ID]Plugin
}

// NewRegistry returns an empty registry using load, or TextLoader when nil.
func NewRegistry(load Loader) *Registry {
	if load == nil {
		load = TextLoader
	}
	return &Registry{load: load, plugins: make(map[ID]Plugin)}
}

// Load instantiates the plugin at path.
func (r *Registry) Load(path string) (ID, error) {
	p, err := r.load(path)
	if err != nil {
		return 0, fmt.Errorf("load plugin %s: %w", path, err)
	}
	r.next++
	r.plugins[r.next] = p
	return r.next, nil
}

// Draw renders plugin id.
func (r *Registry) Draw(id ID, rows, cols int) (string, error) {
	p, ok := r.plugins[id]
	if !ok {
		return "", fmt.Errorf("draw %d: %w", id, ErrUnknownPlugin)
	}
	return p.Render(rows, cols), nil
}

// Input forwards bytes to plugin id.
func (r *Registry) Input(id ID, b []byte) error {
	p, ok := r.plugins[id]
	if !ok {
		return fmt.Errorf("input %d: %w", id, ErrUnknownPlugin)
	}
	p.Update(b)
	return nil
}

// Broadcast forwards bytes to every plugin in load order.
func (r *Registry) Broadcast(b []byte) {
	for _, id := range r.IDs() {
		r.plugins[id].Update(b)
	}
}

// Unload drops plugin id.
func (r *Registry) Unload(id ID) error {
	if _, ok := r.plugins[id]; !ok {
		return fmt.Errorf("unload %d: %w", id, ErrUnknownPlugin)
	}
	delete(r.plugins, id)
	return nil
}

// IDs returns the loaded plugin IDs in load order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of loaded plugins.
func (r *Registry) Len() int { return len(r.plugins) }

// TextLoader loads a built-in plugin that titles itself after the base name
// of path and shows the most recent input lines.
func TextLoader(path string) (Plugin, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty plugin path")
	}
	return &textPlugin{title: filepath.Base(path)}, nil
}

type textPlugin struct {
	title string
	lines []string
}

func (p *textPlugin) Update(input []byte) {
	for _, l := range strings.Split(strings.TrimRight(string(input), "\n"), "\n") {
		p.lines = append(p.lines, l)
	}
}

func (p *textPlugin) Render(rows, cols int) string {
	if rows <= 0 || cols <= 0 {
		return ""
	}
	out := make([]string, 0, rows)
	out = append(out, fit(p.title, cols))
	body := p.lines
	if keep := rows - 1; len(body) > keep {
		body = body[len(body)-keep:]
	}
	for _, l := range body {
		out = append(out, fit(l, cols))
	}
	return strings.Join(out, "\n")
}

// fit truncates s to cols display cells.
func fit(s string, cols int) string {
	if runewidth.StringWidth(s) <= cols {
		return s
	}
	if cols <= 1 {
		return runewidth.Truncate(s, cols, "")
	}
	return runewidth.Truncate(s, cols, "…")
}
