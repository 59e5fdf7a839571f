package components

import "github.com/MD412/project-arceus/internal/model"

// ScanSelectedMsg asks to make a scan active.
type ScanSelectedMsg struct {
	ScanID string
}

// DetectionOpenMsg asks to open the correction panel on a detection.
type DetectionOpenMsg struct {
	Index int
}

// CorrectionClosedMsg asks to close the correction panel.
type CorrectionClosedMsg struct{}

// SearchRequestMsg asks for a catalog search tagged with Seq.
type SearchRequestMsg struct {
	Query string
	Seq   int
}

// ReplacementChosenMsg asks to relink a detection to Card.
type ReplacementChosenMsg struct {
	ScanID      string
	DetectionID string
	Card        model.Card
}
