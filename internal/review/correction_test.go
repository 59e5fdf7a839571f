package review

import (
	"errors"
	"testing"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectionPanel_ShortQueriesNeverSearch(t *testing.T) {
	panel := NewCorrectionPanel(unidentified("d1"), 0)
	panel.EnterReplace()
	assert.Equal(t, 2, panel.MinQueryLength())

	for _, q := range []string{"", "p", " p ", "é"} {
		_, search := panel.SetQuery(q)
		assert.False(t, search, "query %q", q)
		assert.True(t, panel.NeedsMoreInput())
		assert.Empty(t, panel.Results())
	}

	_, search := panel.SetQuery("pi")
	assert.True(t, search)
	assert.Equal(t, LoadLoading, panel.SearchState())
}

func TestCorrectionPanel_StaleResultsDropped(t *testing.T) {
	panel := NewCorrectionPanel(unidentified("d1"), 2)
	panel.EnterReplace()

	oldSeq, _ := panel.SetQuery("pik")
	newSeq, _ := panel.SetQuery("pikachu")

	stale := []model.CardCandidate{{Card: model.Card{ID: "stale"}}}
	assert.False(t, panel.SearchDone(oldSeq, stale, nil))
	assert.Empty(t, panel.Results())

	fresh := []model.CardCandidate{{Card: model.Card{ID: "base1-58"}}}
	assert.True(t, panel.SearchDone(newSeq, fresh, nil))
	assert.Equal(t, fresh, panel.Results())
}

func TestCorrectionPanel_SelectSuccess(t *testing.T) {
	panel := NewCorrectionPanel(identified("d1", "jungle-60", 0.4), 2)
	panel.EnterReplace()
	seq, _ := panel.SetQuery("pika")
	panel.SearchDone(seq, []model.CardCandidate{{Card: model.Card{ID: "base1-58"}}}, nil)

	card := model.Card{ID: "base1-58", Name: "Pikachu"}
	require.True(t, panel.BeginSelect(card))
	assert.False(t, panel.BeginSelect(model.Card{ID: "other"}), "second selection ignored while committing")

	panel.FinishSelect(card, nil)
	assert.Equal(t, PanelReview, panel.Mode())
	assert.Empty(t, panel.Query())
	got, ok := panel.Detection().IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "base1-58", got.ID)
}

func TestCorrectionPanel_SelectFailureStaysInReplace(t *testing.T) {
	panel := NewCorrectionPanel(unidentified("d1"), 2)
	panel.EnterReplace()
	panel.SetQuery("char")

	card := model.Card{ID: "base1-4"}
	require.True(t, panel.BeginSelect(card))
	panel.FinishSelect(card, errors.New("conflict"))

	assert.Equal(t, PanelReplace, panel.Mode())
	assert.EqualError(t, panel.CommitErr(), "conflict")
	assert.Equal(t, "char", panel.Query())
	assert.False(t, panel.Detection().IsIdentified())
	assert.True(t, panel.BeginSelect(card), "a new selection is allowed after failure")
}

func TestCorrectionPanel_CancelReplace(t *testing.T) {
	panel := NewCorrectionPanel(unidentified("d1"), 2)
	assert.False(t, panel.BeginSelect(model.Card{ID: "x"}), "selection requires replace mode")

	panel.EnterReplace()
	seq, _ := panel.SetQuery("mew")
	panel.CancelReplace()

	assert.Equal(t, PanelReview, panel.Mode())
	assert.Empty(t, panel.Query())
	assert.False(t, panel.SearchDone(seq, []model.CardCandidate{{}}, nil), "results after cancel are stale")
	assert.False(t, panel.Detection().IsIdentified())
}
