package model

import "time"

// ScanStatus is the processing status of an uploaded scan.
type ScanStatus string

// Scan status constants.
const (
	ScanQueued        ScanStatus = "queued"
	ScanProcessing    ScanStatus = "processing"
	ScanReviewPending ScanStatus = "review_pending"
	ScanCompleted     ScanStatus = "completed"
	ScanFailed        ScanStatus = "failed"
	ScanCancelled     ScanStatus = "cancelled"
	ScanRejected      ScanStatus = "rejected"
)

// AllScanStatuses lists every valid status.
var AllScanStatuses = []ScanStatus{
	ScanQueued,
	ScanProcessing,
	ScanReviewPending,
	ScanCompleted,
	ScanFailed,
	ScanCancelled,
	ScanRejected,
}

// IsValid reports whether s is a known status.
func (s ScanStatus) IsValid() bool {
	for _, status := range AllScanStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsAwaitingReview reports whether approve/discard may be applied.
func (s ScanStatus) IsAwaitingReview() bool {
	return s == ScanReviewPending
}

// IsHistorical reports whether the scan is read-only for the review workflow.
func (s ScanStatus) IsHistorical() bool {
	return s == ScanCompleted || s == ScanCancelled || s == ScanRejected
}

// Scan is one uploaded page of cards.
type Scan struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         ScanStatus `json:"status"`
	SummaryImage   string     `json:"summary_image,omitempty"`
	DetectionCount int        `json:"detection_count"`
}

// IsReviewable reports whether approve/discard may still be applied to the scan.
func (s Scan) IsReviewable() bool {
	return s.Status.IsAwaitingReview() && s.ApprovedAt == nil
}

// InboxEntry is a projection of a scan awaiting review.
type InboxEntry struct {
	CreatedAt       time.Time `json:"created_at"`
	ScanID          string    `json:"scan_id"`
	Title           string    `json:"title"`
	TotalDetections int       `json:"total_detections"`
}
