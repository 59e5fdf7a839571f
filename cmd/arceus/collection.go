package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MD412/project-arceus/internal/cli"
	"github.com/spf13/cobra"
)

func collectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collection",
		Short: "List the cards added to your collection",
		Long: `List every collection entry created by approving scans, most recent
first. Requires the local database.`,
		Args: cobra.NoArgs,
		RunE: runCollection,
	}
}

func runCollection(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}()

	entries, err := store.ListCollection(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collection: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println(cli.InfoStyle.Render("Your collection is empty. Approve a scan with 'arceus review' to add cards.")) //nolint:forbidigo // User-facing output
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.CardName, e.CardID, e.ScanID, formatTime(e.AddedAt)})
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Collection (%d %s)", len(entries), plural("card", len(entries))))) //nolint:forbidigo // User-facing output
	return writeTable(os.Stdout, []string{"Card", "Catalog ID", "Scan", "Added"}, rows)
}
