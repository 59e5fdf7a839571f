package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MD412/project-arceus/internal/cli"
	"github.com/MD412/project-arceus/internal/ingest"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import scan pipeline results",
		Long: `Import a JSON or YAML export from the scan pipeline: catalog cards,
scans, and the detections found on each scan.

Scans are upserted by ID, so re-importing a file is safe. A scan whose
detections reference unknown cards is skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "Validate the file without writing to the database")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	batch, err := ingest.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	slog.Info("Loaded pipeline export",
		"file", args[0],
		"cards", len(batch.Cards),
		"scans", len(batch.Scans),
		"detections", batch.DetectionCount())

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d cards, %d scans, %d detections would be imported", //nolint:forbidigo // User-facing output
			len(batch.Cards), len(batch.Scans), batch.DetectionCount())))
		return nil
	}

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	var progress ingest.ProgressFunc
	if !noProgress && len(batch.Scans) > 0 {
		progress = cli.NewProgress(os.Stderr, len(batch.Scans), "Importing scans...").Set
	}

	stats, err := ingest.NewImporter(store).Import(ctx, batch, progress)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d cards, %d scans, %d detections", //nolint:forbidigo // User-facing output
		stats.Cards, stats.Scans, stats.Detections)))
	if stats.Skipped > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Skipped %d invalid scans; see the warnings above", stats.Skipped))) //nolint:forbidigo // User-facing output
	}

	return nil
}
