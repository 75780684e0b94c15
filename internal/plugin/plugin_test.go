package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writePlugin creates a plugin directory holding a shell script executable and,
// when actions is non-nil, a plugin.json manifest.
func writePlugin(t *testing.T, root, name, script string, actions []string) *Plugin {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	exe := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: name + ".sh",
		Actions:    actions,
	}
	if actions != nil {
		data, _ := json.Marshal(manifest)
		if err := os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}

	return &Plugin{Manifest: manifest, Path: dir, Executable: exe}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)

	storage := []string{ActionDownload, ActionUpload}

	tests := []struct {
		name      string
		script    string
		timeoutMs int
		wantErr   string
		check     func(t *testing.T, resp *Response)
	}{
		{
			name:   "success with data",
			script: `echo '{"success":true,"data":{"url":"https://cdn.example.com/out.mp4"}}'`,
			check: func(t *testing.T, resp *Response) {
				if !resp.Success {
					t.Error("expected success=true")
				}
				var data struct{ URL string }
				if err := json.Unmarshal(resp.Data, &data); err != nil {
					t.Fatalf("failed to unmarshal data: %v", err)
				}
				if data.URL != "https://cdn.example.com/out.mp4" {
					t.Errorf("url = %q", data.URL)
				}
			},
		},
		{
			name:   "request arrives on stdin",
			script: `INPUT=$(cat); echo "{\"success\":true,\"data\":$INPUT}"`,
			check: func(t *testing.T, resp *Response) {
				var got Request
				if err := json.Unmarshal(resp.Data, &got); err != nil {
					t.Fatalf("failed to unmarshal echoed request: %v", err)
				}
				if got.Action != ActionUpload || got.Key != "output/out.mp4" || got.Path != "/tmp/out.mp4" {
					t.Errorf("echoed request = %+v", got)
				}
			},
		},
		{
			name:   "plugin reported failure",
			script: `echo '{"success":false,"error":"object not found"}'`,
			check: func(t *testing.T, resp *Response) {
				if resp.Success || resp.Error != "object not found" {
					t.Errorf("response = %+v", resp)
				}
			},
		},
		{
			name:    "invalid json",
			script:  `echo 'not json'`,
			wantErr: "failed to parse plugin response",
		},
		{
			name:    "non-zero exit",
			script:  `echo 'gsutil exploded' >&2; exit 3`,
			wantErr: "gsutil exploded",
		},
		{
			name:      "timeout",
			script:    `exec sleep 5`,
			timeoutMs: 100,
			wantErr:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := writePlugin(t, t.TempDir(), "helper", tt.script, storage)

			timeout := tt.timeoutMs
			if timeout == 0 {
				timeout = 5000
			}

			resp, err := NewExecutor(timeout).Execute(context.Background(), plugin, &Request{
				Action: ActionUpload,
				Key:    "output/out.mp4",
				Path:   "/tmp/out.mp4",
			})

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Execute() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			tt.check(t, resp)
		})
	}
}

func TestExecutor_UnsupportedAction(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "reader", `echo '{"success":true}'`, []string{ActionDownload})

	_, err := NewExecutor(1000).Execute(context.Background(), plugin, &Request{Action: ActionUpload})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Execute() error = %v, want ErrUnsupportedAction", err)
	}
}

func TestExecutor_Cancelled(t *testing.T) {
	skipOnWindows(t)

	plugin := writePlugin(t, t.TempDir(), "slow", `exec sleep 5`, []string{ActionDownload})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5000).Execute(ctx, plugin, &Request{Action: ActionDownload})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()

	writePlugin(t, root, "gcs-bucket", "", []string{ActionDownload, ActionUpload})
	writePlugin(t, root, "archive", "", []string{ActionUpload})
	writePlugin(t, root, "no-manifest", "", nil)

	broken := filepath.Join(root, "broken")
	os.MkdirAll(broken, 0755)
	os.WriteFile(filepath.Join(broken, "plugin.json"), []byte("{invalid"), 0644)

	os.WriteFile(filepath.Join(root, "stray-file"), []byte("x"), 0644)

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if got := len(manager.List()); got != 2 {
		t.Fatalf("expected 2 plugins, got %d", got)
	}

	plug, err := manager.Get("gcs-bucket")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if plug.Executable != filepath.Join(root, "gcs-bucket", "gcs-bucket.sh") {
		t.Errorf("Executable = %q", plug.Executable)
	}

	if _, err := manager.Get("no-manifest"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get(no-manifest) error = %v, want ErrPluginNotFound", err)
	}

	uploaders := manager.ForAction(ActionUpload)
	if len(uploaders) != 2 || uploaders[0].Manifest.Name != "archive" {
		t.Errorf("ForAction(upload) = %v", uploaders)
	}
	if got := manager.ForAction(ActionDownload); len(got) != 1 {
		t.Errorf("ForAction(download) returned %d plugins, want 1", len(got))
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "first", "", []string{ActionDownload})

	manager := NewManager(root)
	manager.Discover()

	os.RemoveAll(filepath.Join(root, "first"))
	writePlugin(t, root, "second", "", []string{ActionDownload})
	manager.Discover()

	if _, err := manager.Get("first"); !errors.Is(err, ErrPluginNotFound) {
		t.Error("stale plugin should be dropped on rediscovery")
	}
	if _, err := manager.Get("second"); err != nil {
		t.Errorf("Get(second) error = %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")
	if err := manager.Discover(); err != nil {
		t.Errorf("Discover() error = %v, want nil", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
	if manager.PluginDir() != "/path/that/does/not/exist" {
		t.Errorf("PluginDir() = %q", manager.PluginDir())
	}
}
