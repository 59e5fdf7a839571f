package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identification is the current best guess for a detection. It is either
// Unidentified or Identified; no other implementations exist.
type Identification interface {
	isIdentification()
}

// Unidentified means the pipeline could not link the crop to a catalog card.
type Unidentified struct{}

// Identified links a detection to a catalog card.
type Identified struct {
	Card Card
}

func (Unidentified) isIdentification() {}
func (Identified) isIdentification()   {}

// Detection is one detected card crop within a scan.
type Detection struct {
	CreatedAt  time.Time
	Match      Identification
	Confidence *float64
	ID         string
	ScanID     string
	CropURL    string
	TileLabel  string
}

// IdentifiedCard returns the linked card, if any.
func (d Detection) IdentifiedCard() (Card, bool) {
	switch m := d.Match.(type) {
	case Identified:
		return m.Card, true
	case *Identified:
		if m != nil {
			return m.Card, true
		}
	}
	return Card{}, false
}

// IsIdentified reports whether the detection is linked to a card.
func (d Detection) IsIdentified() bool {
	_, ok := d.IdentifiedCard()
	return ok
}

// WithCard returns a copy of the detection linked to card.
func (d Detection) WithCard(card Card) Detection {
	d.Match = Identified{Card: card}
	return d
}

// ConfidencePercent returns the confidence as a whole percentage and whether one is known.
func (d Detection) ConfidencePercent() (int, bool) {
	if d.Confidence == nil {
		return 0, false
	}
	return int(*d.Confidence*100 + 0.5), true
}

// detectionJSON is the wire shape. A nil card means unidentified.
type detectionJSON struct {
	CreatedAt  time.Time `json:"created_at"`
	Card       *Card     `json:"card,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	CropURL    string    `json:"crop_url"`
	TileLabel  string    `json:"tile_label,omitempty"`
}

// MarshalJSON flattens the identification variant into an optional card field.
func (d Detection) MarshalJSON() ([]byte, error) {
	out := detectionJSON{
		ID:         d.ID,
		ScanID:     d.ScanID,
		CropURL:    d.CropURL,
		TileLabel:  d.TileLabel,
		Confidence: d.Confidence,
		CreatedAt:  d.CreatedAt,
	}
	if card, ok := d.IdentifiedCard(); ok {
		out.Card = &card
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the identification variant from the optional card field.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var in detectionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode detection: %w", err)
	}
	*d = Detection{
		ID:         in.ID,
		ScanID:     in.ScanID,
		CropURL:    in.CropURL,
		TileLabel:  in.TileLabel,
		Confidence: in.Confidence,
		CreatedAt:  in.CreatedAt,
		Match:      Unidentified{},
	}
	if in.Card != nil {
		d.Match = Identified{Card: *in.Card}
	}
	return nil
}
