package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/testutil"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
cards:
  - id: base1-58
    name: Pikachu
    set_code: BS
    number: 58/102
scans:
  - id: page-1
    title: Binder page 1
    created_at: 2024-06-02T10:00:00Z
    detections:
      - id: p1-a
        crop_url: crops/p1/a.jpg
        card_id: base1-58
        confidence: 0.91
      - id: p1-b
        crop_url: crops/p1/b.jpg
  - title: ""
    detections: []
`

const sampleJSON = `{
  "cards": [{"id": "fossil-15", "name": "Mew", "set_code": "FO", "number": "15/62"}],
  "scans": [{"id": "page-2", "title": "Loose cards", "status": "review_pending",
    "detections": [{"id": "p2-a", "crop_url": "crops/p2/a.jpg", "card_id": "fossil-15"}]}]
}`

func TestDecode_YAML(t *testing.T) {
	batch, err := Decode(strings.NewReader(sampleYAML), FormatYAML)
	require.NoError(t, err)

	require.Len(t, batch.Scans, 2)
	assert.Equal(t, "review_pending", batch.Scans[0].Status)
	assert.Equal(t, 2, batch.DetectionCount())
	assert.NotEmpty(t, batch.Scans[1].ID, "missing ids are generated")
	assert.True(t, strings.HasPrefix(batch.Scans[1].Title, "Scan "))

	dets := batch.Scans[0].Detections
	assert.True(t, dets[1].CreatedAt.After(dets[0].CreatedAt), "pipeline order is kept")
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   error
	}{
		{"unknown field", `{"scans":[{"id":"x","colour":"red"}]}`, FormatJSON, common.ErrInvalidInput},
		{"bad status", "scans:\n  - id: x\n    status: archived\n", FormatYAML, common.ErrInvalidStatus},
		{"duplicate", "scans:\n  - id: x\n  - id: x\n", FormatYAML, common.ErrDuplicateEntry},
		{"garbage", `{{`, FormatJSON, common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("results/run.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("results.csv")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestImport_WritesScansAndDetections(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Fixture{})
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	batch, err := LoadFile(path)
	require.NoError(t, err)

	var calls []int
	stats, err := NewImporter(db.Storage).Import(context.Background(), batch, func(done, total int) {
		calls = append(calls, done)
		assert.Equal(t, 1, total)
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Cards: 1, Scans: 1, Detections: 1}, stats)
	assert.Equal(t, []int{1}, calls)

	detections, err := db.Storage.ListDetections(context.Background(), "page-2")
	require.NoError(t, err)
	require.Len(t, detections, 1)
	card, ok := detections[0].IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "Mew", card.Name)
}

func TestImport_SkipsScanWithUnknownCard(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Fixture{Cards: testutil.SampleCatalog()})

	batch := &Batch{Scans: []ScanRecord{
		{ID: "ok", Title: "Good", Status: "review_pending", Detections: []DetectionRecord{
			{ID: "ok-1", CropURL: "c.jpg", CardID: "base1-4"},
		}},
		{ID: "bad", Title: "Bad", Status: "review_pending", Detections: []DetectionRecord{
			{ID: "bad-1", CropURL: "c.jpg", CardID: "nope-1"},
		}},
	}}
	require.NoError(t, batch.normalize())

	stats, err := NewImporter(db.Storage).Import(context.Background(), batch, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scans)
	assert.Equal(t, 1, stats.Skipped)

	_, err = db.Storage.GetScan(context.Background(), "bad")
	assert.ErrorIs(t, err, common.ErrNotFound, "skipped scans are not half written")
}

type busyStore struct {
	failures int
	saved    []model.Scan
}

func (s *busyStore) SaveCards(context.Context, []model.Card) error { return nil }
func (s *busyStore) GetCard(context.Context, string) (*model.Card, error) {
	return &model.Card{}, nil
}
func (s *busyStore) SaveDetections(context.Context, string, []model.Detection) error { return nil }
func (s *busyStore) SaveScan(_ context.Context, scan *model.Scan) error {
	if s.failures > 0 {
		s.failures--
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	}
	s.saved = append(s.saved, *scan)
	return nil
}

func TestImport_RetriesBusyDatabase(t *testing.T) {
	store := &busyStore{failures: 2}
	batch := &Batch{Scans: []ScanRecord{{ID: "x", Title: "X", Status: "review_pending"}}}

	im := NewImporter(store)
	im.retry.InitialDelay = 1
	stats, err := im.Import(context.Background(), batch, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scans)
	assert.Len(t, store.saved, 1)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("busy")))
}
