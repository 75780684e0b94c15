// Package plugin discovers and runs helper executables that move video objects in and
// out of external storage.
package plugin

import (
	"encoding/json"
	"slices"
)

// Actions understood by storage helper plugins.
const (
	ActionDownload = "download"
	ActionUpload   = "upload"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is sent to a plugin on stdin.
// Key names the remote object and Path the local file it is copied from or to.
type Request struct {
	Action string          `json:"action"`
	Key    string          `json:"key"`
	Path   string          `json:"path"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
