package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
)

// SaveDetections inserts or replaces detections for a scan. Detections
// without a timestamp are stamped in slice order so creation order is kept.
func (s *SQLiteStorage) SaveDetections(ctx context.Context, scanID string, detections []model.Detection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return err
	}
	for i := range detections {
		if err := validateDetection(&detections[i]); err != nil {
			return fmt.Errorf("detection at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getScanTx(ctx, tx, scanID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO detections (id, scan_id, card_id, crop_url, confidence, tile_label, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare detection insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		base := time.Now().UTC()
		for i, d := range detections {
			created := d.CreatedAt
			if created.IsZero() {
				created = base.Add(time.Duration(i) * time.Millisecond)
			}

			var cardID sql.NullString
			if card, ok := d.IdentifiedCard(); ok {
				cardID = sql.NullString{String: card.ID, Valid: true}
			}

			if _, err := stmt.ExecContext(ctx,
				d.ID, scanID, cardID, d.CropURL, nullFloat(d.Confidence), d.TileLabel, created,
			); err != nil {
				return fmt.Errorf("failed to save detection %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// ListDetections returns a scan's detections in creation order.
func (s *SQLiteStorage) ListDetections(ctx context.Context, scanID string) ([]model.Detection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(scanID, "scanID"); err != nil {
		return nil, err
	}

	if _, err := getScanTx(ctx, s.db, scanID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.scan_id, d.crop_url, d.confidence, d.tile_label, d.created_at,
			c.id, c.name, c.set_code, c.set_name, c.number, c.rarity, c.image_url, c.market_price
		FROM detections d
		LEFT JOIN cards c ON c.id = d.card_id
		WHERE d.scan_id = ?
		ORDER BY d.created_at ASC, d.rowid ASC
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	detections := []model.Detection{}
	for rows.Next() {
		var (
			d          model.Detection
			confidence sql.NullFloat64
			cardID     sql.NullString
			name       sql.NullString
			setCode    sql.NullString
			setName    sql.NullString
			number     sql.NullString
			rarity     sql.NullString
			imageURL   sql.NullString
			price      sql.NullFloat64
		)
		if err := rows.Scan(
			&d.ID, &d.ScanID, &d.CropURL, &confidence, &d.TileLabel, &d.CreatedAt,
			&cardID, &name, &setCode, &setName, &number, &rarity, &imageURL, &price,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}

		if confidence.Valid {
			v := confidence.Float64
			d.Confidence = &v
		}

		d.Match = model.Unidentified{}
		if cardID.Valid {
			card := model.Card{
				ID:       cardID.String,
				Name:     name.String,
				SetCode:  setCode.String,
				SetName:  setName.String,
				Number:   number.String,
				Rarity:   rarity.String,
				ImageURL: imageURL.String,
			}
			if price.Valid {
				v := price.Float64
				card.MarketPrice = &v
			}
			d.Match = model.Identified{Card: card}
		}

		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}
	return detections, nil
}

// CorrectDetection links a detection to a different catalog card. The update
// is rejected once the owning scan has been approved or closed.
func (s *SQLiteStorage) CorrectDetection(ctx context.Context, detectionID, cardID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(detectionID, "detectionID"); err != nil {
		return err
	}
	if err := validateString(cardID, "cardID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			status   string
			approved sql.NullTime
		)
		err := tx.QueryRowContext(ctx, `
			SELECT s.status, s.approved_at
			FROM detections d
			JOIN scans s ON s.id = d.scan_id
			WHERE d.id = ?
		`, detectionID).Scan(&status, &approved)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("detection %s: %w", detectionID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load detection: %w", err)
		}

		if approved.Valid || model.ScanStatus(status).IsHistorical() {
			return fmt.Errorf("detection %s: %w", detectionID, common.ErrScanLocked)
		}

		if _, err := getCardTx(ctx, tx, cardID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE detections SET card_id = ? WHERE id = ?`, cardID, detectionID,
		); err != nil {
			return fmt.Errorf("failed to update detection: %w", err)
		}
		return nil
	})
}
