// Package logging builds the application's zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	// Level is one of TRACE, DEBUG, INFO, WARN or ERROR, case-insensitive.
	Level string
	// LogsDir, when set, receives a session log file alongside console output.
	LogsDir string
	// Console is the console destination; os.Stdout when nil.
	Console io.Writer
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SessionFileName returns the log file name for a session started at t.
func SessionFileName(t time.Time) string {
	return fmt.Sprintf("vaultjudge.%s.log", t.UTC().Format("20060102_150405"))
}

// New returns a logger writing coloured console output and, when a logs directory is
// configured, an uncoloured copy to a session file. The returned closer releases the
// file and is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}

	var closer io.Closer = nopCloser{}
	if opts.LogsDir != "" {
		if err := os.MkdirAll(opts.LogsDir, 0755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("create logs dir: %w", err)
		}
		path := filepath.Join(opts.LogsDir, SessionFileName(time.Now()))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
