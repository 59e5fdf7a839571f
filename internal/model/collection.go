package model

import "time"

// CollectionEntry is one card committed to the user's collection by an approval.
type CollectionEntry struct {
	AddedAt     time.Time `json:"added_at"`
	ID          string    `json:"id"`
	CardID      string    `json:"card_id"`
	ScanID      string    `json:"scan_id"`
	DetectionID string    `json:"detection_id"`
	CardName    string    `json:"card_name"`
}

// ApprovalResult reports how many collection entries an approval produced.
type ApprovalResult struct {
	ApprovedCount int `json:"approved_count"`
}
