// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/MD412/project-arceus/internal/model"
)

// MinSearchQueryLength is the shortest query that is sent to card search.
const MinSearchQueryLength = 2

// InboxSource lists scans awaiting review.
type InboxSource interface {
	ListPendingScans(ctx context.Context) ([]model.InboxEntry, error)
}

// DetectionSource lists the detections of one scan in creation order.
type DetectionSource interface {
	ListDetections(ctx context.Context, scanID string) ([]model.Detection, error)
}

// CardSearcher queries the card catalog. Queries shorter than
// MinSearchQueryLength return no results and make no call.
type CardSearcher interface {
	SearchCards(ctx context.Context, query string) ([]model.CardCandidate, error)
}

// DetectionCorrector reassigns the card a detection is linked to.
type DetectionCorrector interface {
	CorrectDetection(ctx context.Context, detectionID, cardID string) error
}

// ScanReviewer commits or updates a whole scan.
type ScanReviewer interface {
	ApproveScan(ctx context.Context, scanID string) (model.ApprovalResult, error)
	UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error
	RejectScan(ctx context.Context, scanID string) error
}

// ScanEditor covers the generic scan record operations.
type ScanEditor interface {
	RenameScan(ctx context.Context, scanID, title string) error
	DeleteScan(ctx context.Context, scanID string) error
}

// HistorySource lists scans that have already been handled.
type HistorySource interface {
	ListHistory(ctx context.Context) ([]model.Scan, error)
}

// ReviewBackend is everything the review workflow needs from the data layer.
// It is implemented locally by storage.SQLiteStorage and remotely by api.Client.
type ReviewBackend interface {
	InboxSource
	DetectionSource
	CardSearcher
	DetectionCorrector
	ScanReviewer
	ScanEditor
	HistorySource
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	ReviewBackend

	// Catalog and ingestion
	SaveCards(ctx context.Context, cards []model.Card) error
	GetCard(ctx context.Context, id string) (*model.Card, error)
	SaveScan(ctx context.Context, scan *model.Scan) error
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	SaveDetections(ctx context.Context, scanID string, detections []model.Detection) error

	// Collection
	ListCollection(ctx context.Context) ([]model.CollectionEntry, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
