package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/handiism/bandcamp-free-downloader/internal/config"
	"github.com/handiism/bandcamp-free-downloader/internal/log"
	"github.com/handiism/bandcamp-free-downloader/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("BANDCAMP_CONFIG")
	if path == "" {
		path = "bandcamp.yaml"
	}
	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	if folder := os.Getenv("MUSIC_FOLDER"); folder != "" {
		settings.MusicFolder = folder
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	logger := zerolog.Nop()
	if logPath := os.Getenv("BANDCAMP_LOG_FILE"); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()

		conf := settings.Log
		conf.Format = "json"
		logger = log.ToWriter(f, conf)
	}

	return tui.Run(settings, logger)
}
