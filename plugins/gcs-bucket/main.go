// Package main provides a storage plugin backed by Google Cloud Storage.
// It shells out to gsutil, so the host must have the Cloud SDK installed and authenticated.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

// BucketEnv names the bucket when the request carries no config.
const BucketEnv = "VAULTJUDGE_GCS_BUCKET"

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Key    string          `json:"key"`
	Path   string          `json:"path"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *Data  `json:"data,omitempty"`
}

// Data is the action result.
type Data struct {
	URL      string `json:"url,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
}

type pluginConfig struct {
	Bucket string `json:"bucket"`
}

// gsutil runs one gsutil command and returns its combined error output.
var gsutil = func(args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.Command("gsutil", args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	writeResponse(handle(req))
}

func handle(req Request) Response {
	bucket, err := bucketName(req.Config)
	if err != nil {
		return Response{Error: err.Error()}
	}
	if req.Key == "" || req.Path == "" {
		return Response{Error: "key and path are required"}
	}

	object := "gs://" + bucket + "/" + req.Key
	switch req.Action {
	case "download":
		if out, err := gsutil("-q", "cp", object, req.Path); err != nil {
			if isNotFound(out) {
				return Response{Error: "object not found: " + req.Key, Data: &Data{NotFound: true}}
			}
			return Response{Error: fmt.Sprintf("download failed: %v: %s", err, strings.TrimSpace(out))}
		}
		return Response{Success: true}

	case "upload":
		if out, err := gsutil("-q", "cp", req.Path, object); err != nil {
			return Response{Error: fmt.Sprintf("upload failed: %v: %s", err, strings.TrimSpace(out))}
		}
		if out, err := gsutil("-q", "acl", "ch", "-u", "AllUsers:R", object); err != nil {
			return Response{Error: fmt.Sprintf("make public failed: %v: %s", err, strings.TrimSpace(out))}
		}
		return Response{Success: true, Data: &Data{URL: publicURL(bucket, req.Key)}}

	default:
		return Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

func bucketName(raw json.RawMessage) (string, error) {
	var cfg pluginConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv(BucketEnv)
	}
	if cfg.Bucket == "" {
		return "", fmt.Errorf("no bucket configured (set %s)", BucketEnv)
	}
	return cfg.Bucket, nil
}

// publicURL is the address a public object is served at.
func publicURL(bucket, key string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

func isNotFound(stderr string) bool {
	return strings.Contains(stderr, "No URLs matched") ||
		strings.Contains(stderr, "NotFoundException") ||
		strings.Contains(stderr, "404")
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
