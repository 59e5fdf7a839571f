package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: catalog, scans, detections",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS cards (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					set_code TEXT NOT NULL DEFAULT '',
					set_name TEXT NOT NULL DEFAULT '',
					number TEXT NOT NULL DEFAULT '',
					rarity TEXT NOT NULL DEFAULT '',
					image_url TEXT NOT NULL DEFAULT '',
					market_price REAL
				)`,
				`CREATE INDEX idx_cards_name ON cards(name COLLATE NOCASE)`,

				`CREATE TABLE IF NOT EXISTS scans (
					id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					status TEXT NOT NULL,
					summary_image TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_scans_status ON scans(status, created_at)`,

				`CREATE TABLE IF NOT EXISTS detections (
					id TEXT PRIMARY KEY,
					scan_id TEXT NOT NULL,
					card_id TEXT,
					crop_url TEXT NOT NULL,
					confidence REAL,
					tile_label TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE,
					FOREIGN KEY (card_id) REFERENCES cards(id)
				)`,
				`CREATE INDEX idx_detections_scan ON detections(scan_id, created_at)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add collection entries produced by approvals",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS collection_entries (
					id TEXT PRIMARY KEY,
					card_id TEXT NOT NULL,
					scan_id TEXT NOT NULL,
					detection_id TEXT NOT NULL UNIQUE,
					added_at DATETIME NOT NULL,
					FOREIGN KEY (card_id) REFERENCES cards(id)
				)`,
				`CREATE INDEX idx_collection_scan ON collection_entries(scan_id)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Track approval time separately from status",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx, []string{
				`ALTER TABLE scans ADD COLUMN approved_at DATETIME`,
				// Scans completed before this column existed were approved.
				`UPDATE scans SET approved_at = updated_at WHERE status = 'completed'`,
			}); err != nil {
				return err
			}
			slog.Info("Backfilled approval timestamps for completed scans")
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the version the database is currently at.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
