package review

import (
	"context"
	"fmt"
	"slices"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/service"
)

// DefaultLowConfidenceThreshold flags detections below 80% confidence.
const DefaultLowConfidenceThreshold = 0.80

// Tile is the display projection of one detection.
type Tile struct {
	Detection     model.Detection
	Card          model.Card
	Confidence    int
	Identified    bool
	HasConfidence bool
	LowConfidence bool
}

// DetectionList holds the detections of the active scan and which of them,
// if any, is open in the correction panel.
type DetectionList struct {
	cache     *QueryCache
	err       error
	scanID    string
	items     []model.Detection
	editing   int
	threshold float64
	state     LoadState
}

// NewDetectionList creates an empty list. A threshold outside (0, 1]
// falls back to DefaultLowConfidenceThreshold.
func NewDetectionList(cache *QueryCache, threshold float64) *DetectionList {
	if cache == nil {
		cache = NewQueryCache()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultLowConfidenceThreshold
	}
	return &DetectionList{
		cache:     cache,
		threshold: threshold,
		editing:   -1,
	}
}

// ScanID returns the scan the list belongs to.
func (l *DetectionList) ScanID() string {
	return l.scanID
}

// State returns the load state.
func (l *DetectionList) State() LoadState {
	return l.state
}

// Err returns the error of the last failed load.
func (l *DetectionList) Err() error {
	return l.err
}

// Threshold returns the low-confidence threshold.
func (l *DetectionList) Threshold() float64 {
	return l.threshold
}

// Cached returns the cached detections of scanID.
func (l *DetectionList) Cached(scanID string) ([]model.Detection, bool) {
	return l.cache.Detections(scanID)
}

// BeginLoad switches the list to scanID and marks a fetch as started.
func (l *DetectionList) BeginLoad(scanID string) {
	if scanID != l.scanID {
		l.items = nil
		l.editing = -1
	}
	l.scanID = scanID
	l.state = LoadLoading
	l.err = nil
}

// Loaded stores the detections of scanID. Results for a scan that is no
// longer current are dropped and false is returned.
func (l *DetectionList) Loaded(scanID string, detections []model.Detection) bool {
	if scanID != l.scanID {
		return false
	}
	l.items = slices.Clone(detections)
	l.state = LoadLoaded
	l.err = nil
	l.cache.Set(DetectionsKey(scanID), slices.Clone(detections))
	if l.editing >= len(l.items) {
		l.editing = -1
	}
	return true
}

// Failed records a failed fetch for scanID.
func (l *DetectionList) Failed(scanID string, err error) bool {
	if scanID != l.scanID {
		return false
	}
	l.state = LoadFailed
	l.err = err
	return true
}

// Reset clears the list, e.g. when no scan is active.
func (l *DetectionList) Reset() {
	l.scanID = ""
	l.items = nil
	l.editing = -1
	l.state = LoadIdle
	l.err = nil
}

// Load fetches the detections of scanID unless a cached copy exists.
func (l *DetectionList) Load(ctx context.Context, src service.DetectionSource, scanID string) error {
	l.BeginLoad(scanID)
	if cached, ok := l.Cached(scanID); ok {
		l.Loaded(scanID, cached)
		return nil
	}

	detections, err := src.ListDetections(ctx, scanID)
	if err != nil {
		err = fmt.Errorf("failed to load detections: %w", err)
		l.Failed(scanID, err)
		return err
	}
	l.Loaded(scanID, detections)
	return nil
}

// Items returns the detections in creation order.
func (l *DetectionList) Items() []model.Detection {
	return l.items
}

// Len returns the number of detections.
func (l *DetectionList) Len() int {
	return len(l.items)
}

// Tiles returns the display projection of every detection.
func (l *DetectionList) Tiles() []Tile {
	tiles := make([]Tile, 0, len(l.items))
	for _, d := range l.items {
		tiles = append(tiles, l.tile(d))
	}
	return tiles
}

func (l *DetectionList) tile(d model.Detection) Tile {
	t := Tile{Detection: d}
	t.Card, t.Identified = d.IdentifiedCard()
	t.Confidence, t.HasConfidence = d.ConfidencePercent()
	t.LowConfidence = d.Confidence != nil && *d.Confidence < l.threshold
	return t
}

// Open marks a detection as being corrected.
func (l *DetectionList) Open(detectionID string) bool {
	idx := l.indexOf(detectionID)
	if idx < 0 {
		return false
	}
	l.editing = idx
	return true
}

// OpenAt marks the detection at idx as being corrected.
func (l *DetectionList) OpenAt(idx int) bool {
	if idx < 0 || idx >= len(l.items) {
		return false
	}
	l.editing = idx
	return true
}

// Close ends correction.
func (l *DetectionList) Close() {
	l.editing = -1
}

// Editing returns the detection being corrected.
func (l *DetectionList) Editing() (model.Detection, bool) {
	if l.editing < 0 || l.editing >= len(l.items) {
		return model.Detection{}, false
	}
	return l.items[l.editing], true
}

// EditingIndex returns the index being corrected, or -1.
func (l *DetectionList) EditingIndex() int {
	return l.editing
}

// Next moves correction to the following detection, wrapping at the end.
func (l *DetectionList) Next() {
	l.step(1)
}

// Prev moves correction to the preceding detection, wrapping at the start.
func (l *DetectionList) Prev() {
	l.step(-1)
}

func (l *DetectionList) step(delta int) {
	n := len(l.items)
	if n == 0 || l.editing < 0 {
		return
	}
	l.editing = ((l.editing+delta)%n + n) % n
}

// ApplyCorrection relinks a detection in place, keeping list order.
func (l *DetectionList) ApplyCorrection(detectionID string, card model.Card) bool {
	idx := l.indexOf(detectionID)
	if idx < 0 {
		return false
	}
	l.items[idx] = l.items[idx].WithCard(card)
	l.cache.Set(DetectionsKey(l.scanID), slices.Clone(l.items))
	return true
}

func (l *DetectionList) indexOf(detectionID string) int {
	return slices.IndexFunc(l.items, func(d model.Detection) bool {
		return d.ID == detectionID
	})
}
