// Package config loads vaultjudge settings from vaultjudge.cfg.json with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "vaultjudge.cfg.json"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"staticDir"`
	TLSCert   string `mapstructure:"tlsCert"`
	TLSKey    string `mapstructure:"tlsKey"`
}

// LocalStorageConfig holds settings of the directory-backed bucket.
type LocalStorageConfig struct {
	Root          string `mapstructure:"root"`
	PublicBaseURL string `mapstructure:"publicBaseURL"`
}

// PluginStorageConfig selects the storage helper plugin.
type PluginStorageConfig struct {
	Name      string `mapstructure:"name"`
	TimeoutMs int    `mapstructure:"timeoutMs"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Type   string              `mapstructure:"type"`
	Local  LocalStorageConfig  `mapstructure:"local"`
	Plugin PluginStorageConfig `mapstructure:"plugin"`
}

// DetectorConfig holds pose detector settings.
type DetectorConfig struct {
	Type            string  `mapstructure:"type"`
	MinConfidence   float64 `mapstructure:"minConfidence"`
	ModelComplexity int     `mapstructure:"modelComplexity"`
	Python          string  `mapstructure:"python"`
}

// VideoConfig holds frame preprocessing and output settings.
type VideoConfig struct {
	ResizeHeight int    `mapstructure:"resizeHeight"`
	Flip         bool   `mapstructure:"flip"`
	FourCC       string `mapstructure:"fourcc"`
}

// InfluxConfig holds metrics export settings.
type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// TrayConfig holds system tray settings.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PluginsConfig locates storage helper plugins.
type PluginsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Config is the complete application configuration.
type Config struct {
	LogLevel string         `mapstructure:"logLevel"`
	LogsDir  string         `mapstructure:"logsDir"`
	DataDir  string         `mapstructure:"dataDir"`
	WorkDir  string         `mapstructure:"workDir"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Plugins  PluginsConfig  `mapstructure:"plugins"`
	Detector DetectorConfig `mapstructure:"detector"`
	Video    VideoConfig    `mapstructure:"video"`
	Influx   InfluxConfig   `mapstructure:"influx"`
	Tray     TrayConfig     `mapstructure:"tray"`
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "vaultjudge.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "")
	v.SetDefault("dataDir", "~/.vaultjudge")
	v.SetDefault("workDir", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.staticDir", "")
	v.SetDefault("server.tlsCert", "")
	v.SetDefault("server.tlsKey", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.root", "")
	v.SetDefault("storage.local.publicBaseURL", "")
	v.SetDefault("storage.plugin.name", "gcs-bucket")
	v.SetDefault("storage.plugin.timeoutMs", 120000)
	v.SetDefault("plugins.dir", "")

	v.SetDefault("detector.type", "mediapipe")
	v.SetDefault("detector.minConfidence", 0.5)
	v.SetDefault("detector.modelComplexity", 1)
	v.SetDefault("detector.python", "")

	v.SetDefault("video.resizeHeight", 640)
	v.SetDefault("video.flip", true)
	v.SetDefault("video.fourcc", "mp4v")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "vaultjudge")
	v.SetDefault("influx.bucket", "vault_analysis")

	v.SetDefault("tray.enabled", false)
}

// New returns a viper instance with every default set and VAULTJUDGE_* environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("vaultjudge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"addr":      "server.addr",
	"log-level": "logLevel",
	"detector":  "detector.type",
	"storage":   "storage.type",
	"tray":      "tray.enabled",
}

// Load reads FileName from configDir and returns the resulting configuration.
// A missing file is not an error: defaults apply.
func Load(configDir string) (*Config, error) {
	return LoadFlags(configDir, nil)
}

// LoadFlags is Load with command line overrides. Flags named in FlagKeys take
// precedence over the file when they were set.
func LoadFlags(configDir string, flags *pflag.FlagSet) (*Config, error) {
	v := New()
	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals v and fills in the directories derived from dataDir.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	dataDir, err := expandHome(c.DataDir)
	if err != nil {
		return nil, err
	}
	c.DataDir = dataDir

	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(c.DataDir, "work")
	}
	if c.Storage.Local.Root == "" {
		c.Storage.Local.Root = filepath.Join(c.DataDir, "bucket")
	}
	if c.Plugins.Dir == "" {
		c.Plugins.Dir = filepath.Join(c.DataDir, "plugins")
	}

	switch c.Storage.Type {
	case "local", "plugin":
	default:
		return nil, fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	switch c.Detector.Type {
	case "mediapipe", "mock":
	default:
		return nil, fmt.Errorf("unknown detector.type %q", c.Detector.Type)
	}

	return &c, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
