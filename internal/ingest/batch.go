// Package ingest loads detection results exported by the vision pipeline
// and writes them to storage.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Batch is one pipeline export: catalog cards plus scans with detections.
type Batch struct {
	Cards []model.Card `json:"cards" yaml:"cards"`
	Scans []ScanRecord `json:"scans" yaml:"scans"`
}

// ScanRecord is a scan as written by the pipeline.
type ScanRecord struct {
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title" yaml:"title"`
	Status       string            `json:"status" yaml:"status"`
	SummaryImage string            `json:"summary_image" yaml:"summary_image"`
	Detections   []DetectionRecord `json:"detections" yaml:"detections"`
}

// DetectionRecord is a detection as written by the pipeline. An empty
// CardID means the pipeline could not identify the crop.
type DetectionRecord struct {
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Confidence *float64  `json:"confidence" yaml:"confidence"`
	ID         string    `json:"id" yaml:"id"`
	CardID     string    `json:"card_id" yaml:"card_id"`
	CropURL    string    `json:"crop_url" yaml:"crop_url"`
	TileLabel  string    `json:"tile_label" yaml:"tile_label"`
}

// Format is an export file encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, filepath.Ext(path))
	}
}

// LoadFile reads and decodes an export file.
func LoadFile(path string) (*Batch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	batch, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return batch, nil
}

// Decode reads a batch from r and normalizes it.
func Decode(r io.Reader, format Format) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var batch Batch
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&batch)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&batch)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", common.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s: %w", common.ErrInvalidInput, format, err)
	}

	if err := batch.normalize(); err != nil {
		return nil, err
	}
	return &batch, nil
}

// normalize fills defaults and rejects records that cannot be stored.
func (b *Batch) normalize() error {
	seen := make(map[string]bool)
	for i := range b.Scans {
		s := &b.Scans[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate scan id %q", common.ErrDuplicateEntry, s.ID)
		}
		seen[s.ID] = true

		if strings.TrimSpace(s.Title) == "" {
			s.Title = "Scan " + shortID(s.ID)
		}
		if s.Status == "" {
			s.Status = string(model.ScanReviewPending)
		}
		if !model.ScanStatus(s.Status).IsValid() {
			return fmt.Errorf("scan %s: %w: %q", s.ID, common.ErrInvalidStatus, s.Status)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}

		for j := range s.Detections {
			d := &s.Detections[j]
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			if d.CreatedAt.IsZero() {
				// Keep pipeline order when timestamps are missing.
				d.CreatedAt = s.CreatedAt.Add(time.Duration(j) * time.Millisecond)
			}
		}
	}
	return nil
}

// DetectionCount returns the number of detections across all scans.
func (b *Batch) DetectionCount() int {
	n := 0
	for _, s := range b.Scans {
		n += len(s.Detections)
	}
	return n
}

func (s ScanRecord) toModel() model.Scan {
	return model.Scan{
		ID:           s.ID,
		Title:        s.Title,
		Status:       model.ScanStatus(s.Status),
		SummaryImage: s.SummaryImage,
		CreatedAt:    s.CreatedAt,
	}
}

func (d DetectionRecord) toModel(scanID string) model.Detection {
	det := model.Detection{
		ID:         d.ID,
		ScanID:     scanID,
		CropURL:    d.CropURL,
		Confidence: d.Confidence,
		TileLabel:  d.TileLabel,
		CreatedAt:  d.CreatedAt,
		Match:      model.Unidentified{},
	}
	if d.CardID != "" {
		det.Match = model.Identified{Card: model.Card{ID: d.CardID}}
	}
	return det
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
