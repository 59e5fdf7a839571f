package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MD412/project-arceus/internal/cli"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/service"
	"github.com/spf13/cobra"
)

func scansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Manage scans without the review screen",
		Long: `Scriptable versions of the review actions. Every subcommand works against
the local database or, when backend.url is set, a remote arceus server.`,
	}

	cmd.AddCommand(scansListCmd())
	cmd.AddCommand(scansHistoryCmd())
	cmd.AddCommand(scansRenameCmd())
	cmd.AddCommand(scansDeleteCmd())
	cmd.AddCommand(scansApproveCmd())
	cmd.AddCommand(scansDiscardCmd())

	return cmd
}

func scansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scans awaiting review, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, closeBackend, err := initBackend(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer closeBackend()

			entries, err := backend.ListPendingScans(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list scans: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println(cli.InfoStyle.Render("No scans awaiting review.")) //nolint:forbidigo // User-facing output
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.ScanID, e.Title, fmt.Sprint(e.TotalDetections), formatTime(e.CreatedAt)})
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Inbox (%d)", len(entries)))) //nolint:forbidigo // User-facing output
			return writeTable(os.Stdout, []string{"ID", "Title", "Cards", "Created"}, rows)
		},
	}
}

func scansHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List reviewed scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, closeBackend, err := initBackend(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer closeBackend()

			scans, err := backend.ListHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}
			if len(scans) == 0 {
				fmt.Println(cli.InfoStyle.Render("No reviewed scans yet.")) //nolint:forbidigo // User-facing output
				return nil
			}

			rows := make([][]string, 0, len(scans))
			for _, s := range scans {
				approved := "-"
				if s.ApprovedAt != nil {
					approved = formatTime(*s.ApprovedAt)
				}
				rows = append(rows, []string{s.ID, s.Title, string(s.Status), fmt.Sprint(s.DetectionCount), approved})
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("History (%d)", len(scans)))) //nolint:forbidigo // User-facing output
			return writeTable(os.Stdout, []string{"ID", "Title", "Status", "Cards", "Approved"}, rows)
		},
	}
}

func scansRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <scan-id> <title>",
		Short: "Rename a scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[1])
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}

			backend, closeBackend, err := initBackend(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer closeBackend()

			if err := backend.RenameScan(cmd.Context(), args[0], title); err != nil {
				return fmt.Errorf("failed to rename scan: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Renamed %s to %q", args[0], title))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func scansDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <scan-id>",
		Short: "Delete a scan and its detections",
		Long: `Delete a scan and all of its detections. Cards already added to your
collection by approving the scan are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: runScansDelete,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runScansDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")
	scanID := args[0]

	backend, closeBackend, err := initBackend(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Confirm deletion
	if !force {
		ok, err := cli.Confirm(ctx, cli.NewLineReader(os.Stdin), os.Stdout, fmt.Sprintf("Delete scan %s?", scanID))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			fmt.Println(cli.InfoStyle.Render("Deletion cancelled.")) //nolint:forbidigo // User-facing output
			return nil
		}
	}

	if err := backend.DeleteScan(ctx, scanID); err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	slog.Info("Scan deleted", "scan_id", scanID)
	fmt.Println(cli.FormatSuccess("Scan deleted")) //nolint:forbidigo // User-facing output
	return nil
}

func scansApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <scan-id>",
		Short: "Approve a scan and add its identified cards to the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeBackend, err := initBackend(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer closeBackend()

			coordinator := newCoordinator(backend)
			result, err := coordinator.ApproveAll(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to approve scan: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Approved %d %s", result.ApprovedCount, plural("card", result.ApprovedCount)))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func scansDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <scan-id>",
		Short: "Reject a scan without adding anything to the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeBackend, err := initBackend(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer closeBackend()

			if err := newCoordinator(backend).Discard(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to discard scan: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Scan discarded")) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func newCoordinator(backend service.ScanReviewer) *review.Coordinator {
	cache := review.NewQueryCache()
	return review.NewCoordinator(backend, review.NewInbox(cache), cache,
		review.WithActionTimeout(appConfig.Backend.Timeout))
}

// writeTable prints rows aligned under bold headers.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = cli.TableHeaderStyle.Render(h)
		rules[i] = strings.Repeat("─", max(len(h), 4))
	}

	lines := append([][]string{styled, rules}, rows...)
	for _, cells := range lines {
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
