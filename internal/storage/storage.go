// Package storage moves vault videos between the object store and local work files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
)

var (
	// ErrObjectNotFound is returned when the requested key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrEmptyObject is returned when a download produced no bytes.
	ErrEmptyObject = errors.New("downloaded object is empty")
	// ErrInvalidKey is returned for keys that are empty or escape the bucket.
	ErrInvalidKey = errors.New("invalid object key")
)

// Bucket is an object store holding source videos and annotated output.
type Bucket interface {
	// Download copies the object at key to the local file dst.
	Download(ctx context.Context, key, dst string) error
	// Upload copies the local file src to key and returns its public URL.
	Upload(ctx context.Context, src, key string) (string, error)
}

// BlobName returns the object name referenced by a video URL: the last segment of its
// unescaped path. Storage download URLs escape the folder separator, so
// ".../o/videos%2Fvault.mp4?alt=media" names "vault.mp4".
func BlobName(videoURL string) (string, error) {
	u, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("parse video url: %w", err)
	}

	p, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		return "", fmt.Errorf("unescape video url path: %w", err)
	}

	name := p[strings.LastIndex(p, "/")+1:]
	if name == "" {
		return "", fmt.Errorf("video url %q has no object name", videoURL)
	}
	return name, nil
}

// InputKey is the key of a source video.
func InputKey(name string) string {
	return "videos/" + name
}

// OutputKey is the key of the annotated copy of an athlete's n-th video.
func OutputKey(athleteID string, n int) string {
	return fmt.Sprintf("output/output_%s_video%d.mp4", athleteID, n)
}

func cleanKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// checkDownloaded verifies that dst exists and holds data.
func checkDownloaded(dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat download: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyObject
	}
	return nil
}
