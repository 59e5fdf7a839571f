package storage

import (
	"context"
	"fmt"

	"github.com/MD412/project-arceus/internal/model"
)

// ListCollection returns every collection entry, newest first.
func (s *SQLiteStorage) ListCollection(ctx context.Context) ([]model.CollectionEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.card_id, e.scan_id, e.detection_id, e.added_at, COALESCE(c.name, '')
		FROM collection_entries e
		LEFT JOIN cards c ON c.id = e.card_id
		ORDER BY e.added_at DESC, e.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.CollectionEntry{}
	for rows.Next() {
		var e model.CollectionEntry
		if err := rows.Scan(&e.ID, &e.CardID, &e.ScanID, &e.DetectionID, &e.AddedAt, &e.CardName); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection: %w", err)
	}
	return entries, nil
}
