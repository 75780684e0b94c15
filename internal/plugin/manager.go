package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.json"

// Manager keeps the helper plugins installed under one directory.
type Manager struct {
	dir     string
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager returns a manager for the plugins installed under dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, plugins: make(map[string]*Plugin)}
}

// Discover rescans the plugin directory. Every subdirectory with a readable
// ManifestFile naming the plugin is loaded; anything else is skipped.
// A missing directory leaves the manager empty.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, ok := load(filepath.Join(m.dir, entry.Name()))
		if ok {
			found[p.Manifest.Name] = p
		}
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

func load(dir string) (*Plugin, bool) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, false
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil || manifest.Name == "" {
		return nil, false
	}
	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, true
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// ForAction returns the discovered plugins that declare action, ordered by name.
func (m *Manager) ForAction(action string) []*Plugin {
	var matched []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Supports(action) {
			matched = append(matched, p)
		}
	}
	return matched
}

// List returns every discovered plugin ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})
	return plugins
}

// PluginDir returns the directory plugins are discovered in.
func (m *Manager) PluginDir() string {
	return m.dir
}
