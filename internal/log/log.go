// Package log builds the zerolog loggers used for diagnostics.
//
// User-facing output (progress, summaries) goes through the download
// manager's ProgressEvent stream; the logger carries the structured
// diagnostics behind it.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/handiism/bandcamp-free-downloader/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...internal/log.Version=v1.2.3".
var Version = "dev"

// FromConfig returns a logger writing to stderr.
func FromConfig(conf config.Log) zerolog.Logger {
	return ToWriter(os.Stderr, conf)
}

// ToWriter returns a logger writing to w. The "auto" format is pretty when
// w is a terminal and JSON otherwise.
//
// conf must have passed validation.
func ToWriter(w io.Writer, conf config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil {
		panic("invalid logging level: " + conf.Level)
	}

	format := strings.ToLower(conf.Format)
	if format == "auto" {
		format = "json"
		if IsTerminal(w) {
			format = "pretty"
		}
	}

	switch format {
	case "json":
		return zerolog.
			New(w).
			With().
			Timestamp().
			Str("version", Version).
			Logger().
			Level(level)
	case "pretty":
		return zerolog.
			New(zerolog.ConsoleWriter{ //nolint:exhaustruct
				Out:          w,
				TimeFormat:   time.RFC3339,
				TimeLocation: time.UTC,
			}).
			With().
			Timestamp().
			Str("version", Version).
			Logger().
			Level(level)
	default:
		panic("invalid logging format: " + conf.Format)
	}
}

// NewDefault returns the logger used before the configuration is loaded.
func NewDefault() zerolog.Logger {
	return zerolog.
		New(zerolog.ConsoleWriter{ //nolint:exhaustruct
			Out:          os.Stderr,
			TimeFormat:   time.RFC3339,
			TimeLocation: time.UTC,
		}).
		With().
		Timestamp().
		Str("version", Version).
		Logger().
		Level(zerolog.InfoLevel)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
