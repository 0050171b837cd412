package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/handiism/bandcamp-free-downloader/internal/download"
	ioutils "github.com/handiism/bandcamp-free-downloader/internal/io"
)

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		_ = cli.ShowAppHelp(cmd)
		return exitCodeError(exitUsage)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	urls, err := download.ReadInputs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	if err := ioutils.EnsureDir(settings.MusicFolder); err != nil {
		return fmt.Errorf("create music folder: %w", err)
	}

	out := newOutput(os.Stdout, cmd.Bool("verbose"))
	defer out.Stop()

	manager, err := download.NewManager(settings, out.Event,
		download.WithLogger(logger),
		download.WithTransferObserver(out.Transfer),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	summary, runErr := manager.Run(ctx, urls)
	out.Stop()

	if len(summary.Items) > 0 {
		renderSummary(os.Stdout, summary)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		return exitCodeError(exitCancelled)
	case runErr != nil:
		logger.Error().Err(runErr).Msg("Batch stopped")
		return exitCodeError(exitItems)
	case summary.Failed():
		return exitCodeError(exitItems)
	}

	return nil
}

func fixFolderAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		_ = cli.ShowSubcommandHelp(cmd)
		return exitCodeError(exitUsage)
	}
	folder, artistURL := cmd.Args().Get(0), cmd.Args().Get(1)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", folder)
	}

	out := newOutput(os.Stdout, cmd.Bool("verbose"))
	defer out.Stop()

	manager, err := download.NewManager(settings, out.Event, download.WithLogger(logger))
	if err != nil {
		return err
	}
	defer manager.Close()

	renamed, err := manager.FixFolders(ctx, folder, artistURL)
	out.Stop()
	fmt.Printf("Renamed %d folder(s)\n", renamed)

	if errors.Is(err, context.Canceled) {
		return exitCodeError(exitCancelled)
	}
	return err
}
