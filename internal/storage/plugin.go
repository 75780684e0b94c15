package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/plugin"
)

// PluginBucket delegates transfers to a storage helper plugin, such as one wrapping a
// cloud bucket CLI.
type PluginBucket struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	name     string
	logger   zerolog.Logger
}

// NewPluginBucket returns a bucket backed by the named plugin. The plugin is looked up
// on every transfer, so rediscovery takes effect without a restart.
func NewPluginBucket(manager *plugin.Manager, executor *plugin.Executor, name string, logger zerolog.Logger) *PluginBucket {
	return &PluginBucket{
		manager:  manager,
		executor: executor,
		name:     name,
		logger:   logger.With().Str("component", "storage").Str("plugin", name).Logger(),
	}
}

// responseData is the data payload of a storage plugin response.
type responseData struct {
	URL      string `json:"url"`
	NotFound bool   `json:"notFound"`
}

func (b *PluginBucket) run(ctx context.Context, req *plugin.Request) (responseData, error) {
	var data responseData

	p, err := b.manager.Get(b.name)
	if err != nil {
		return data, fmt.Errorf("storage plugin %s: %w", b.name, err)
	}

	resp, err := b.executor.Execute(ctx, p, req)
	if err != nil {
		return data, err
	}

	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return data, fmt.Errorf("storage plugin %s: bad data: %w", b.name, err)
		}
	}

	if !resp.Success {
		if data.NotFound {
			return data, fmt.Errorf("%s: %w", req.Key, ErrObjectNotFound)
		}
		return data, fmt.Errorf("storage plugin %s %s: %s", b.name, req.Action, resp.Error)
	}

	return data, nil
}

// Download fetches key into dst through the plugin.
func (b *PluginBucket) Download(ctx context.Context, key, dst string) error {
	if _, err := cleanKey(key); err != nil {
		return err
	}

	b.logger.Debug().Str("key", key).Str("path", dst).Msg("downloading")
	if _, err := b.run(ctx, &plugin.Request{Action: plugin.ActionDownload, Key: key, Path: dst}); err != nil {
		return err
	}

	return checkDownloaded(dst)
}

// Upload sends src to key through the plugin and returns the URL it reports.
func (b *PluginBucket) Upload(ctx context.Context, src, key string) (string, error) {
	if _, err := cleanKey(key); err != nil {
		return "", err
	}

	b.logger.Debug().Str("key", key).Str("path", src).Msg("uploading")
	data, err := b.run(ctx, &plugin.Request{Action: plugin.ActionUpload, Key: key, Path: src})
	if err != nil {
		return "", err
	}
	if data.URL == "" {
		return "", errors.New("storage plugin " + b.name + " returned no url")
	}

	return data.URL, nil
}
