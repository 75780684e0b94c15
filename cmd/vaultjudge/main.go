// Command vaultjudge judges gymnastics vault videos.
//
//	vaultjudge [serve] [flags]          run the HTTP service
//	vaultjudge analyze <in> <out>       annotate a local video file
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ayusman/vaultjudge/internal/app"
	"github.com/ayusman/vaultjudge/internal/config"
	"github.com/ayusman/vaultjudge/internal/detector"
	"github.com/ayusman/vaultjudge/internal/logging"
	"github.com/ayusman/vaultjudge/internal/metrics"
	"github.com/ayusman/vaultjudge/internal/plugin"
	"github.com/ayusman/vaultjudge/internal/server"
	"github.com/ayusman/vaultjudge/internal/storage"
	"github.com/ayusman/vaultjudge/internal/store"
	"github.com/ayusman/vaultjudge/internal/tray"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "vaultjudge:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	flags := pflag.NewFlagSet("vaultjudge "+command, pflag.ContinueOnError)
	configDir := flags.String("config", defaultConfigDir(), "directory holding "+config.FileName)
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("detector", "mediapipe", "pose detector (mediapipe or mock)")

	switch command {
	case "serve":
		flags.String("addr", ":8080", "listen address")
		flags.String("storage", "local", "object store (local or plugin)")
		flags.Bool("tray", false, "show the system tray menu")
	case "analyze":
	default:
		return fmt.Errorf("unknown command %q (want serve or analyze)", command)
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFlags(*configDir, flags)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, LogsDir: cfg.LogsDir})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "analyze":
		if flags.NArg() != 2 {
			return errors.New("usage: vaultjudge analyze <input video> <output video>")
		}
		return analyze(ctx, cfg, logger, flags.Arg(0), flags.Arg(1))
	default:
		return serve(ctx, stop, cfg, logger)
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".vaultjudge")
}

func newDetector(cfg *config.Config, logger zerolog.Logger) (detector.Detector, error) {
	if cfg.Detector.Type == "mock" {
		d := detector.NewMockDetector()
		d.SetSequence(detector.VaultSequence()...)
		logger.Warn().Msg("using mock pose detector")
		return d, nil
	}

	d, err := detector.NewMediaPipeDetector(detector.Config{
		MinConfidence:   cfg.Detector.MinConfidence,
		ModelComplexity: cfg.Detector.ModelComplexity,
		Python:          cfg.Detector.Python,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("mediapipe detector: %w", err)
	}
	return d, nil
}

func newBucket(cfg *config.Config, logger zerolog.Logger) (storage.Bucket, error) {
	if cfg.Storage.Type == "local" {
		logger.Info().Str("root", cfg.Storage.Local.Root).Msg("using local bucket")
		return storage.NewLocalBucket(cfg.Storage.Local.Root, cfg.Storage.Local.PublicBaseURL), nil
	}

	manager := plugin.NewManager(cfg.Plugins.Dir)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}
	p, err := storagePlugin(manager, cfg.Storage.Plugin.Name)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("plugin", p.Manifest.Name).
		Int("discovered", len(manager.List())).
		Msg("using plugin bucket")
	return storage.NewPluginBucket(manager, plugin.NewExecutor(cfg.Storage.Plugin.TimeoutMs), p.Manifest.Name, logger), nil
}

// storagePlugin returns the named plugin, or the first one that can both
// download and upload when name is empty.
func storagePlugin(manager *plugin.Manager, name string) (*plugin.Plugin, error) {
	if name == "" {
		for _, p := range manager.ForAction("upload") {
			if p.Manifest.Supports("download") {
				return p, nil
			}
		}
		return nil, fmt.Errorf("no storage plugin in %s: %w", manager.PluginDir(), plugin.ErrPluginNotFound)
	}

	p, err := manager.Get(name)
	if err != nil {
		return nil, fmt.Errorf("storage plugin %q in %s: %w", name, manager.PluginDir(), err)
	}
	for _, action := range []string{"download", "upload"} {
		if !p.Manifest.Supports(action) {
			return nil, fmt.Errorf("storage plugin %q does not support %s", name, action)
		}
	}
	return p, nil
}

func newRecorder(ctx context.Context, cfg *config.Config, logger zerolog.Logger) metrics.Recorder {
	if !cfg.Influx.Enabled {
		return metrics.Nop{}
	}
	r := metrics.NewInfluxRecorder(metrics.InfluxSettings{
		URL:    cfg.Influx.URL,
		Token:  cfg.Influx.Token,
		Org:    cfg.Influx.Org,
		Bucket: cfg.Influx.Bucket,
	}, logger)
	if !r.Ping(ctx) {
		logger.Warn().Str("url", cfg.Influx.URL).Msg("InfluxDB not reachable, metrics will be retried")
	}
	return r
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, st *store.Store, bucket storage.Bucket) (*app.App, error) {
	d, err := newDetector(cfg, logger)
	if err != nil {
		return nil, err
	}
	return app.New(app.Config{
		Store:        st,
		Bucket:       bucket,
		Detector:     d,
		Metrics:      newRecorder(ctx, cfg, logger),
		WorkDir:      cfg.WorkDir,
		Flip:         cfg.Video.Flip,
		ResizeHeight: cfg.Video.ResizeHeight,
		FourCC:       cfg.Video.FourCC,
		Logger:       logger,
	}), nil
}

func analyze(ctx context.Context, cfg *config.Config, logger zerolog.Logger, in, out string) error {
	a, err := newApp(ctx, cfg, logger, nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.AnalyzeFile(ctx, in, out)
	if err != nil {
		return err
	}

	event := logger.Info().
		Str("output", out).
		Int("frames", summary.Frames).
		Int("detected", summary.DetectedFrames).
		Str("phase", summary.FinalPhase.String())
	for kind, v := range summary.MaxDeductions {
		event = event.Float64(string(kind), v)
	}
	event.Msg("analysis finished")
	return nil
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *config.Config, logger zerolog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bucket, err := newBucket(cfg, logger)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, st, bucket)
	if err != nil {
		return err
	}
	defer a.Close()

	hub := server.NewLiveHub(logger)
	a.AddListener(hub)

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		logger.Info().Str("dir", staticDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Processor: a,
		Toggle:    a,
		Live:      hub,
		TLSCert:   cfg.Server.TLSCert,
		TLSKey:    cfg.Server.TLSKey,
		Logger:    logger,
	})

	if !cfg.Tray.Enabled {
		return srv.Run(ctx, cfg.Server.Addr)
	}

	// The tray must own the main goroutine.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, cfg.Server.Addr)
	}()

	t := tray.New(a, logger)
	t.OnOpen(func() {
		if err := openBrowser(dashboardURL(cfg)); err != nil {
			logger.Warn().Err(err).Msg("open dashboard")
		}
	})
	t.OnQuit(stop)
	a.AddListener(t)
	go func() {
		<-ctx.Done()
		t.Stop()
	}()
	t.Run()

	stop()
	return <-errCh
}

// findWebDir searches for the web directory next to the working directory
// and in the data directory.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
