package main

import (
	"fmt"
	"log/slog"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/tui"
	"github.com/MD412/project-arceus/internal/tui/themes"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review pending scans in the terminal UI",
		Long: `Open the review screen: the inbox of scans awaiting review on the left,
the detected cards of the selected scan on the right.

Approve a scan with 'a' to add its identified cards to your collection, or
discard it with 'x'. Press enter on a card to open the correction panel and
link it to a different catalog entry. Press ? for all shortcuts.

Log output is written to logging.file while the screen is open.`,
		RunE: runReview,
	}

	cmd.Flags().String("theme", "default", "color theme (default, catppuccin-mocha)")

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	themeName, _ := cmd.Flags().GetString("theme")

	backend, closeBackend, err := initBackend(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeBackend()

	level, err := common.ParseLevel(appConfig.Logging.Level)
	if err != nil {
		return err
	}
	restoreLogger, err := common.RedirectToFile(appConfig.Logging.File, level, appConfig.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to redirect logs: %w", err)
	}
	defer func() {
		if err := restoreLogger(); err != nil {
			slog.Warn("failed to close log file", "error", err)
		}
	}()

	slog.Info("Starting review session", "remote", appConfig.Backend.Remote())

	return tui.Run(ctx,
		tui.WithBackend(backend),
		tui.WithTheme(themes.GetTheme(themeName)),
		tui.WithRequestTimeout(appConfig.Backend.Timeout),
		tui.WithLowConfidenceThreshold(appConfig.Review.LowConfidenceThreshold),
		tui.WithMinQueryLength(appConfig.Review.MinQueryLength),
	)
}
