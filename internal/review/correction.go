package review

import (
	"strings"
	"unicode/utf8"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/service"
)

// PanelMode is the mode of the correction panel.
type PanelMode int

// Panel modes.
const (
	// PanelReview shows the current match next to the original crop.
	PanelReview PanelMode = iota
	// PanelReplace swaps the match pane for a card search.
	PanelReplace
)

// CorrectionPanel is the state of correcting one detection.
type CorrectionPanel struct {
	searchErr   error
	commitErr   error
	detection   model.Detection
	query       string
	pendingCard string
	results     []model.CardCandidate
	querySeq    int
	minQuery    int
	searchState LoadState
	mode        PanelMode
}

// NewCorrectionPanel opens the panel on d in review mode. minQuery is
// raised to service.MinSearchQueryLength when lower.
func NewCorrectionPanel(d model.Detection, minQuery int) *CorrectionPanel {
	return &CorrectionPanel{
		detection: d,
		minQuery:  max(minQuery, service.MinSearchQueryLength),
	}
}

// Detection returns the detection being corrected.
func (p *CorrectionPanel) Detection() model.Detection {
	return p.detection
}

// Mode returns the panel mode.
func (p *CorrectionPanel) Mode() PanelMode {
	return p.mode
}

// MinQueryLength returns the shortest query that triggers a search.
func (p *CorrectionPanel) MinQueryLength() int {
	return p.minQuery
}

// Retarget moves the panel to another detection and resets it.
func (p *CorrectionPanel) Retarget(d model.Detection) {
	p.detection = d
	p.CancelReplace()
	p.commitErr = nil
}

// EnterReplace switches the match pane to a card search.
func (p *CorrectionPanel) EnterReplace() {
	p.mode = PanelReplace
	p.commitErr = nil
}

// CancelReplace discards the search and returns to review mode.
func (p *CorrectionPanel) CancelReplace() {
	if p.pendingCard != "" {
		return
	}
	p.mode = PanelReview
	p.query = ""
	p.results = nil
	p.searchErr = nil
	p.searchState = LoadIdle
	p.querySeq++
}

// SetQuery records the current query. It returns the sequence number to
// tag the search with and whether a search should be issued at all.
func (p *CorrectionPanel) SetQuery(query string) (int, bool) {
	p.querySeq++
	p.query = query
	p.searchErr = nil

	if p.NeedsMoreInput() {
		p.results = nil
		p.searchState = LoadIdle
		return p.querySeq, false
	}
	p.searchState = LoadLoading
	return p.querySeq, true
}

// Query returns the current query.
func (p *CorrectionPanel) Query() string {
	return p.query
}

// NeedsMoreInput reports whether the query is too short to search.
func (p *CorrectionPanel) NeedsMoreInput() bool {
	return utf8.RuneCountInString(strings.TrimSpace(p.query)) < p.minQuery
}

// SearchDone stores results for the query tagged seq. Results for any
// other query are stale and dropped.
func (p *CorrectionPanel) SearchDone(seq int, results []model.CardCandidate, err error) bool {
	if seq != p.querySeq || p.mode != PanelReplace {
		return false
	}
	if err != nil {
		p.searchErr = err
		p.searchState = LoadFailed
		p.results = nil
		return true
	}
	p.results = results
	p.searchState = LoadLoaded
	return true
}

// Results returns the latest search results.
func (p *CorrectionPanel) Results() []model.CardCandidate {
	return p.results
}

// SearchState returns the state of the current search.
func (p *CorrectionPanel) SearchState() LoadState {
	return p.searchState
}

// SearchErr returns the last search error.
func (p *CorrectionPanel) SearchErr() error {
	return p.searchErr
}

// BeginSelect claims the commit slot for card. It returns false when not
// in replace mode or while another selection is being committed.
func (p *CorrectionPanel) BeginSelect(card model.Card) bool {
	if p.mode != PanelReplace || p.pendingCard != "" {
		return false
	}
	p.pendingCard = card.ID
	p.commitErr = nil
	return true
}

// Committing reports whether a selection is outstanding.
func (p *CorrectionPanel) Committing() bool {
	return p.pendingCard != ""
}

// FinishSelect settles a selection. On success the detection is relinked
// and the panel returns to review mode; on failure it stays in replace
// mode with the error and the link unchanged.
func (p *CorrectionPanel) FinishSelect(card model.Card, err error) {
	if p.pendingCard != card.ID {
		return
	}
	p.pendingCard = ""
	if err != nil {
		p.commitErr = err
		return
	}
	p.detection = p.detection.WithCard(card)
	p.CancelReplace()
}

// CommitErr returns the error of the last failed selection.
func (p *CorrectionPanel) CommitErr() error {
	return p.commitErr
}
