package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/handiism/bandcamp-free-downloader/internal/config"
	"github.com/handiism/bandcamp-free-downloader/internal/log"
)

const (
	exitUsage     = 1
	exitItems     = 2
	exitCancelled = 130
)

func main() {
	logger := log.NewDefault()

	// .env is loaded before flags are parsed so it can feed their env sources.
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error().Err(err).Msg("Failed to load .env file")
			os.Exit(exitUsage)
		}
	}

	//nolint:exhaustruct
	app := &cli.Command{
		Name:      "bandcamp-dl",
		Version:   log.Version,
		Usage:     "Download free Bandcamp releases",
		ArgsUsage: "<url|batch-file>...",
		Suggest:   true,
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   "bandcamp.yaml",
				Sources: cli.EnvVars("BANDCAMP_CONFIG"),
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:    "music-folder",
				Aliases: []string{"m"},
				Usage:   "Folder artifacts are saved under",
				Sources: cli.EnvVars("MUSIC_FOLDER"),
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:    "no-artist-subfolder",
				Aliases: []string{"n"},
				Usage:   "Save artifacts directly in the music folder",
				Sources: cli.EnvVars("NO_ARTIST_SUBFOLDER"),
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Stop at the first failing item",
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:  "cover-art",
				Usage: "Save cover art next to each artifact",
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show verbose output",
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Diagnostic log level (overrides config)",
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Diagnostic log format: auto, json or pretty (overrides config)",
			},
		},
		Action: downloadAction,
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:      "download",
				Aliases:   []string{"dl"},
				Usage:     "Download the given releases, artist pages and batch files",
				ArgsUsage: "<url|batch-file>...",
				Action:    downloadAction,
			},
			//nolint:exhaustruct
			{
				Name:      "fix-folder",
				Usage:     "Add release dates to undated '{artist} - {name}' folders",
				ArgsUsage: "<folder> <artist-url>",
				Action:    fixFolderAction,
			},
			//nolint:exhaustruct
			{
				Name:      "init-config",
				Usage:     "Write the default configuration to the config file path",
				ArgsUsage: " ",
				Action:    initConfigAction,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("Cancelled")
			os.Exit(exitCancelled)
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(exitUsage)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

// loadSettings reads the config file and applies command line overrides.
func loadSettings(cmd *cli.Command) (*config.Settings, zerolog.Logger, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	if cmd.IsSet("music-folder") {
		settings.MusicFolder = cmd.String("music-folder")
	}
	if cmd.IsSet("no-artist-subfolder") {
		settings.NoArtistSubfolder = cmd.Bool("no-artist-subfolder")
	}
	if cmd.IsSet("fail-fast") {
		settings.FailFast = cmd.Bool("fail-fast")
	}
	if cmd.IsSet("cover-art") {
		settings.SaveCoverArt = cmd.Bool("cover-art")
	}
	if cmd.IsSet("log-level") {
		settings.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		settings.Log.Format = cmd.String("log-format")
	}

	if err := settings.Validate(); err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("invalid settings: %w", err)
	}

	logger := log.FromConfig(settings.Log)
	logger.Debug().Dict("config", settings.ToDict()).Msg("Config loaded")

	return settings, logger, nil
}

func initConfigAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	if err := config.DefaultSettings().Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println("Wrote", path)
	return nil
}
