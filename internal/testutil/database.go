// Package testutil provides test utilities for arceus: an isolated in-memory
// database and small builders for catalog, scan and detection fixtures.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// ScanFixture is a scan together with the detections it owns.
type ScanFixture struct {
	Scan       model.Scan
	Detections []model.Detection
}

// Fixture describes the rows seeded into a test database.
type Fixture struct {
	Cards []model.Card
	Scans []ScanFixture
}

// SetupTestDB creates a new in-memory test database seeded with fixture.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Fixture{
//		Cards: testutil.SampleCatalog(),
//		Scans: []testutil.ScanFixture{
//			testutil.PendingScan("A", 3),
//		},
//	})
func SetupTestDB(t *testing.T, fixture Fixture) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}
	db.Seed(fixture)
	return db
}

// Seed inserts additional fixture rows.
func (db *TestDB) Seed(fixture Fixture) {
	db.t.Helper()
	ctx := context.Background()

	if len(fixture.Cards) > 0 {
		if err := db.Storage.SaveCards(ctx, fixture.Cards); err != nil {
			db.t.Fatalf("failed to seed cards: %v", err)
		}
	}

	for _, sf := range fixture.Scans {
		scan := sf.Scan
		if err := db.Storage.SaveScan(ctx, &scan); err != nil {
			db.t.Fatalf("failed to seed scan %q: %v", scan.ID, err)
		}
		if len(sf.Detections) > 0 {
			if err := db.Storage.SaveDetections(ctx, scan.ID, sf.Detections); err != nil {
				db.t.Fatalf("failed to seed detections for %q: %v", scan.ID, err)
			}
		}
	}
}

// baseTime anchors fixture timestamps so ordering is deterministic.
var baseTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// SampleCatalog returns a small catalog used across tests.
func SampleCatalog() []model.Card {
	price := 4.25
	return []model.Card{
		{ID: "base1-4", Name: "Charizard", SetCode: "BS", SetName: "Base Set", Number: "4/102", Rarity: "Rare Holo"},
		{ID: "base1-58", Name: "Pikachu", SetCode: "BS", SetName: "Base Set", Number: "58/102", Rarity: "Common", MarketPrice: &price},
		{ID: "jungle-60", Name: "Pikachu", SetCode: "JU", SetName: "Jungle", Number: "60/64", Rarity: "Common"},
		{ID: "base1-46", Name: "Charmander", SetCode: "BS", SetName: "Base Set", Number: "46/102", Rarity: "Common"},
		{ID: "fossil-15", Name: "Mew", SetCode: "FO", SetName: "Fossil", Number: "15/62", Rarity: "Rare Holo"},
	}
}

// PendingScan builds a review_pending scan with n detections. Detections
// alternate between identified (linked to the sample catalog) and unidentified.
// Scans created later with a higher index sort first in the inbox.
func PendingScan(id string, n int) ScanFixture {
	return ScanAt(id, model.ScanReviewPending, n, 0)
}

// ScanAt builds a scan with the given status whose creation time is offset
// by offsetHours from the fixture base time.
func ScanAt(id string, status model.ScanStatus, n, offsetHours int) ScanFixture {
	created := baseTime.Add(time.Duration(offsetHours) * time.Hour)
	catalog := SampleCatalog()

	detections := make([]model.Detection, 0, n)
	for i := 0; i < n; i++ {
		d := model.Detection{
			ID:        fmt.Sprintf("%s-d%d", id, i),
			ScanID:    id,
			CropURL:   fmt.Sprintf("crops/%s/%d.jpg", id, i),
			CreatedAt: created.Add(time.Duration(i) * time.Second),
			Match:     model.Unidentified{},
		}
		if i%2 == 0 {
			conf := 0.95 - float64(i)*0.1
			d.Confidence = &conf
			d.Match = model.Identified{Card: catalog[i%len(catalog)]}
		}
		detections = append(detections, d)
	}

	return ScanFixture{
		Scan: model.Scan{
			ID:        id,
			Title:     "Scan " + id,
			Status:    status,
			CreatedAt: created,
		},
		Detections: detections,
	}
}

// InboxScenario seeds A (3 detections, 2 identified), B (empty) and
// C (5 detections, 3 identified), with A the most recent.
func InboxScenario() Fixture {
	return Fixture{
		Cards: SampleCatalog(),
		Scans: []ScanFixture{
			ScanAt("A", model.ScanReviewPending, 3, 2),
			ScanAt("B", model.ScanReviewPending, 0, 1),
			ScanAt("C", model.ScanReviewPending, 5, 0),
		},
	}
}
