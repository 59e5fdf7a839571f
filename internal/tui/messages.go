package tui

import (
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
)

// Data loading messages.
type inboxLoadedMsg struct {
	err     error
	entries []model.InboxEntry
	seq     int
}

type detectionsLoadedMsg struct {
	err        error
	scanID     string
	detections []model.Detection
}

type historyLoadedMsg struct {
	err   error
	scans []model.Scan
}

type searchResultsMsg struct {
	err     error
	results []model.CardCandidate
	seq     int
}

// Async operation messages.
type actionDoneMsg struct {
	outcome review.Outcome
}

type correctionDoneMsg struct {
	err         error
	scanID      string
	detectionID string
	card        model.Card
}

// scanOp names an edit made to a scan.
type scanOp string

const (
	opRename scanOp = "rename"
	opDelete scanOp = "delete"
)

type scanEditedMsg struct {
	err    error
	scanID string
	title  string
	op     scanOp
}
