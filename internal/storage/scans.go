package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/google/uuid"
)

const scanColumns = `s.id, s.title, s.status, s.summary_image, s.created_at, s.updated_at, s.approved_at,
	(SELECT COUNT(*) FROM detections d WHERE d.scan_id = s.id)`

// SaveScan inserts or updates a scan record.
func (s *SQLiteStorage) SaveScan(ctx context.Context, scan *model.Scan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScan(scan); err != nil {
		return err
	}

	now := time.Now().UTC()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	scan.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, title, status, summary_image, created_at, updated_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			summary_image = excluded.summary_image,
			updated_at = excluded.updated_at
	`, scan.ID, scan.Title, string(scan.Status), scan.SummaryImage, scan.CreatedAt, scan.UpdatedAt, nullTime(scan.ApprovedAt))
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID.
func (s *SQLiteStorage) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getScanTx(ctx, s.db, id)
}

func getScanTx(ctx context.Context, q queryable, id string) (*model.Scan, error) {
	row := q.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans s WHERE s.id = ?`, id)
	scan, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &scan, nil
}

// ListPendingScans returns scans awaiting review, most recent first.
// Scans whose approval already committed are excluded even if their status
// update lagged behind.
func (s *SQLiteStorage) ListPendingScans(ctx context.Context) ([]model.InboxEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, COUNT(d.id)
		FROM scans s
		LEFT JOIN detections d ON d.scan_id = s.id
		WHERE s.status = ? AND s.approved_at IS NULL
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.rowid DESC
	`, string(model.ScanReviewPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.InboxEntry{}
	for rows.Next() {
		var entry model.InboxEntry
		if err := rows.Scan(&entry.ScanID, &entry.Title, &entry.CreatedAt, &entry.TotalDetections); err != nil {
			return nil, fmt.Errorf("failed to scan inbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox: %w", err)
	}
	return entries, nil
}

// ListHistory returns scans that the review workflow treats as read-only.
func (s *SQLiteStorage) ListHistory(ctx context.Context) ([]model.Scan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans s
		WHERE s.status IN (?, ?, ?) OR s.approved_at IS NOT NULL
		ORDER BY s.updated_at DESC, s.rowid DESC
	`, string(model.ScanCompleted), string(model.ScanCancelled), string(model.ScanRejected))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scans := []model.Scan{}
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return scans, nil
}

// ApproveScan turns every identified detection of a scan into a collection
// entry. Unidentified detections are skipped. Approving an already approved
// scan is a no-op that reports the entries created the first time.
func (s *SQLiteStorage) ApproveScan(ctx context.Context, scanID string) (model.ApprovalResult, error) {
	if err := validateContext(ctx); err != nil {
		return model.ApprovalResult{}, err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return model.ApprovalResult{}, err
	}

	var result model.ApprovalResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		scan, err := getScanTx(ctx, tx, scanID)
		if err != nil {
			return err
		}

		if scan.ApprovedAt != nil {
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM collection_entries WHERE scan_id = ?`, scanID,
			).Scan(&result.ApprovedCount); err != nil {
				return fmt.Errorf("failed to count collection entries: %w", err)
			}
			slog.Debug("Scan already approved", "scan_id", scanID, "approved_count", result.ApprovedCount)
			return nil
		}

		if !scan.Status.IsAwaitingReview() {
			return fmt.Errorf("scan %s has status %s: %w", scanID, scan.Status, common.ErrNotReviewable)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, card_id FROM detections
			WHERE scan_id = ? AND card_id IS NOT NULL
			ORDER BY created_at, rowid
		`, scanID)
		if err != nil {
			return fmt.Errorf("failed to list identified detections: %w", err)
		}
		type link struct{ detectionID, cardID string }
		var links []link
		for rows.Next() {
			var l link
			if err := rows.Scan(&l.detectionID, &l.cardID); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan detection: %w", err)
			}
			links = append(links, l)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to close detection rows: %w", err)
		}

		now := time.Now().UTC()
		for _, l := range links {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO collection_entries (id, card_id, scan_id, detection_id, added_at)
				VALUES (?, ?, ?, ?, ?)
			`, uuid.NewString(), l.cardID, scanID, l.detectionID, now)
			if err != nil {
				return fmt.Errorf("failed to add collection entry: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.ApprovedCount++
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE scans SET approved_at = ?, updated_at = ? WHERE id = ?`, now, now, scanID,
		); err != nil {
			return fmt.Errorf("failed to mark scan approved: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ApprovalResult{}, err
	}

	slog.Info("Approved scan", "scan_id", scanID, "approved_count", result.ApprovedCount)
	return result, nil
}

// UpdateScanStatus moves a scan to status. Completed, cancelled and rejected
// scans are final, a scan is only completed after approval, and an approved
// scan can no longer be rejected. Setting the current status is a no-op.
func (s *SQLiteStorage) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		scan, err := getScanTx(ctx, tx, scanID)
		if err != nil {
			return err
		}

		changed, err := statusTransition(scan, status)
		if err != nil || !changed {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE scans SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), time.Now().UTC(), scanID,
		)
		if err != nil {
			return fmt.Errorf("failed to update scan status: %w", err)
		}
		return requireAffected(res, "scan", scanID)
	})
}

// RejectScan discards a scan awaiting review. Rejecting a rejected scan is a
// no-op so a retried discard succeeds.
func (s *SQLiteStorage) RejectScan(ctx context.Context, scanID string) error {
	return s.UpdateScanStatus(ctx, scanID, model.ScanRejected)
}

func statusTransition(scan *model.Scan, status model.ScanStatus) (bool, error) {
	if scan.Status == status {
		return false, nil
	}
	if scan.Status.IsHistorical() {
		return false, fmt.Errorf("scan %s has status %s: %w", scan.ID, scan.Status, common.ErrNotReviewable)
	}

	switch status {
	case model.ScanRejected:
		if scan.ApprovedAt != nil {
			return false, fmt.Errorf("scan %s is already approved: %w", scan.ID, common.ErrNotReviewable)
		}
		if !scan.IsReviewable() {
			return false, fmt.Errorf("scan %s has status %s: %w", scan.ID, scan.Status, common.ErrNotReviewable)
		}
	case model.ScanCompleted:
		if scan.ApprovedAt == nil {
			return false, fmt.Errorf("scan %s has not been approved: %w", scan.ID, common.ErrNotReviewable)
		}
	}
	return true, nil
}

// RenameScan changes a scan's title.
func (s *SQLiteStorage) RenameScan(ctx context.Context, scanID, title string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return err
	}
	if err := validateTitle(title); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), scanID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename scan: %w", err)
	}
	return requireAffected(res, "scan", scanID)
}

// DeleteScan removes a scan and its detections. Collection entries created
// by an earlier approval are kept.
func (s *SQLiteStorage) DeleteScan(ctx context.Context, scanID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM detections WHERE scan_id = ?`, scanID); err != nil {
			return fmt.Errorf("failed to delete detections: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, scanID)
		if err != nil {
			return fmt.Errorf("failed to delete scan: %w", err)
		}
		return requireAffected(res, "scan", scanID)
	})
}

func scanScan(row rowScanner) (model.Scan, error) {
	var (
		scan     model.Scan
		status   string
		approved sql.NullTime
	)
	err := row.Scan(
		&scan.ID,
		&scan.Title,
		&status,
		&scan.SummaryImage,
		&scan.CreatedAt,
		&scan.UpdatedAt,
		&approved,
		&scan.DetectionCount,
	)
	if err != nil {
		return model.Scan{}, err
	}
	scan.Status = model.ScanStatus(status)
	if approved.Valid {
		t := approved.Time
		scan.ApprovedAt = &t
	}
	return scan, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
