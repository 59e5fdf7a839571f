package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/mattn/go-sqlite3"
)

// Store is the subset of storage the importer writes to.
type Store interface {
	SaveCards(ctx context.Context, cards []model.Card) error
	GetCard(ctx context.Context, id string) (*model.Card, error)
	SaveScan(ctx context.Context, scan *model.Scan) error
	SaveDetections(ctx context.Context, scanID string, detections []model.Detection) error
}

// Stats summarizes an import.
type Stats struct {
	Cards      int
	Scans      int
	Detections int
	Skipped    int
}

// ProgressFunc is called after each scan is written.
type ProgressFunc func(done, total int)

// Importer writes batches to a Store.
type Importer struct {
	store Store
	retry common.RetryOptions
}

// NewImporter creates an importer. Writes that hit a busy database are
// retried.
func NewImporter(store Store) *Importer {
	return &Importer{
		store: store,
		retry: common.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			ShouldRetry:  isBusy,
		},
	}
}

// Import writes the catalog first, then every scan with its detections.
// A scan that fails validation is skipped and logged; storage failures
// abort the import.
func (im *Importer) Import(ctx context.Context, batch *Batch, progress ProgressFunc) (Stats, error) {
	var stats Stats

	if len(batch.Cards) > 0 {
		if err := im.write(ctx, func() error { return im.store.SaveCards(ctx, batch.Cards) }); err != nil {
			return stats, fmt.Errorf("failed to import catalog: %w", err)
		}
		stats.Cards = len(batch.Cards)
	}

	known := make(map[string]bool, len(batch.Cards))
	for _, c := range batch.Cards {
		known[c.ID] = true
	}

	for i, rec := range batch.Scans {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := im.importScan(ctx, rec, known); err != nil {
			if !errors.Is(err, common.ErrInvalidInput) && !errors.Is(err, common.ErrNotFound) {
				return stats, fmt.Errorf("failed to import scan %s: %w", rec.ID, err)
			}
			slog.Warn("Skipping invalid scan", "scan_id", rec.ID, "error", err)
			stats.Skipped++
		} else {
			stats.Scans++
			stats.Detections += len(rec.Detections)
		}

		if progress != nil {
			progress(i+1, len(batch.Scans))
		}
	}

	slog.Info("Import finished",
		"cards", stats.Cards,
		"scans", stats.Scans,
		"detections", stats.Detections,
		"skipped", stats.Skipped)
	return stats, nil
}

// importScan checks card references before anything is written so a bad
// scan is skipped whole.
func (im *Importer) importScan(ctx context.Context, rec ScanRecord, known map[string]bool) error {
	detections := make([]model.Detection, 0, len(rec.Detections))
	for _, d := range rec.Detections {
		if d.CardID != "" && !known[d.CardID] {
			if _, err := im.store.GetCard(ctx, d.CardID); err != nil {
				return fmt.Errorf("detection %s references card %s: %w", d.ID, d.CardID, err)
			}
			known[d.CardID] = true
		}
		detections = append(detections, d.toModel(rec.ID))
	}

	scan := rec.toModel()
	if err := im.write(ctx, func() error { return im.store.SaveScan(ctx, &scan) }); err != nil {
		return err
	}
	if len(detections) == 0 {
		return nil
	}
	return im.write(ctx, func() error { return im.store.SaveDetections(ctx, scan.ID, detections) })
}

func (im *Importer) write(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, op, im.retry)
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
