package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalBucket stores objects as files below a root directory.
type LocalBucket struct {
	root          string
	publicBaseURL string
}

// NewLocalBucket returns a bucket rooted at root. Uploaded objects are published as
// publicBaseURL/key, or as file URLs when publicBaseURL is empty.
func NewLocalBucket(root, publicBaseURL string) *LocalBucket {
	return &LocalBucket{
		root:          root,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Root returns the directory objects are stored in.
func (b *LocalBucket) Root() string {
	return b.root
}

func (b *LocalBucket) objectPath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(cleaned)), nil
}

// Download copies the object at key to dst.
func (b *LocalBucket) Download(ctx context.Context, key, dst string) error {
	src, err := b.objectPath(key)
	if err != nil {
		return err
	}

	if err := copyFile(ctx, src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return err
	}

	return checkDownloaded(dst)
}

// Upload copies src to key and returns the object's public URL.
func (b *LocalBucket) Upload(ctx context.Context, src, key string) (string, error) {
	dst, err := b.objectPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := copyFile(ctx, src, dst); err != nil {
		return "", err
	}

	return b.PublicURL(key), nil
}

// PublicURL returns the URL an object is served at.
func (b *LocalBucket) PublicURL(key string) string {
	if b.publicBaseURL == "" {
		abs, err := filepath.Abs(filepath.Join(b.root, filepath.FromSlash(key)))
		if err != nil {
			abs = filepath.Join(b.root, key)
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return b.publicBaseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
