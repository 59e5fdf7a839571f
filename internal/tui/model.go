package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/service"
	"github.com/MD412/project-arceus/internal/tui/components"
	"github.com/MD412/project-arceus/internal/tui/themes"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents the current state of the TUI.
type State int

const (
	StateReview State = iota
	StateCorrecting
	StateConfirmDelete
	StateRenaming
	StateHelp
)

// refreshMsg asks for the inbox, from cache when possible.
type refreshMsg struct{}

// Model holds the main TUI state. The review types are shared pointers,
// so copies of Model made by Bubble Tea all see the same review state.
type Model struct {
	ctx         context.Context
	theme       themes.Theme
	backend     service.ReviewBackend
	cache       *review.QueryCache
	inbox       *review.Inbox
	detections  *review.DetectionList
	coordinator *review.Coordinator
	shell       *review.Shell
	router      *review.KeyRouter
	panel       *review.CorrectionPanel
	unregister  func()
	notice      review.Notice
	inboxView   components.InboxModel
	grid        components.DetectionGridModel
	correction  components.CorrectionModel
	history     components.HistoryModel
	renameInput textinput.Model
	help        help.Model
	spinner     spinner.Model
	keymap      KeyMap
	config      Config
	inboxSeq    int
	width       int
	height      int
	state       State
	quitting    bool
}

// newModel creates a new model with the given configuration.
func newModel(ctx context.Context, cfg Config) Model {
	cache := cfg.Cache
	if cache == nil {
		cache = review.NewQueryCache()
	}
	inbox := review.NewInbox(cache)
	coordinator := review.NewCoordinator(cfg.Backend, inbox, cache, review.WithActionTimeout(cfg.ActionTimeout))

	renameInput := textinput.New()
	renameInput.Placeholder = "Scan title"
	renameInput.CharLimit = 200
	if !cfg.EnableAnimations {
		renameInput.Cursor.SetMode(cursor.CursorStatic)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		theme:       cfg.Theme,
		backend:     cfg.Backend,
		cache:       cache,
		inbox:       inbox,
		detections:  review.NewDetectionList(cache, cfg.LowConfidenceThreshold),
		coordinator: coordinator,
		shell:       review.NewShell(inbox, coordinator),
		router:      &review.KeyRouter{},
		inboxView:   components.NewInboxModel(cfg.Theme),
		grid:        components.NewDetectionGridModel(cfg.Theme),
		correction:  components.NewCorrectionModel(cfg.Theme, cfg.EnableAnimations),
		history:     components.NewHistoryModel(cfg.Theme),
		renameInput: renameInput,
		help:        help.New(),
		spinner:     s,
		keymap:      DefaultKeyMap(),
		config:      cfg,
		width:       cfg.Width,
		height:      cfg.Height,
		state:       StateReview,
	}
	m.resize()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		func() tea.Msg { return refreshMsg{} },
	}
	if m.config.EnableAnimations {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		cmd = m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		var spin, panel tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		m.correction, panel = m.correction.Update(msg)
		cmd = tea.Batch(spin, panel)

	case refreshMsg:
		cmd = m.refreshInbox()

	case inboxLoadedMsg:
		cmd = m.handleInboxLoaded(msg)

	case detectionsLoadedMsg:
		m.handleDetectionsLoaded(msg)

	case historyLoadedMsg:
		m.handleHistoryLoaded(msg)

	case searchResultsMsg:
		if m.panel != nil {
			m.panel.SearchDone(msg.seq, msg.results, msg.err)
			cmd = m.correction.Refresh()
		}

	case actionDoneMsg:
		cmd = m.handleActionDone(msg)

	case correctionDoneMsg:
		cmd = m.handleCorrectionDone(msg)

	case scanEditedMsg:
		cmd = m.handleScanEdited(msg)

	case components.ScanSelectedMsg:
		if m.shell.Select(msg.ScanID) {
			cmd = m.syncDetections()
		}

	case components.DetectionOpenMsg:
		m.openCorrection(msg.Index)

	case components.CorrectionClosedMsg:
		m.closeCorrection()

	case components.SearchRequestMsg:
		cmd = m.searchCards(msg.Seq, msg.Query)

	case components.ReplacementChosenMsg:
		cmd = m.correctDetection(msg.ScanID, msg.DetectionID, msg.Card)
	}

	m.syncViews()
	return m, cmd
}

// handleKey dispatches a key press according to the current state.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.state {
	case StateHelp:
		if key.Matches(msg, m.keymap.ToggleHelp, m.keymap.Cancel, m.keymap.Quit) {
			m.state = StateReview
		}
		return nil

	case StateConfirmDelete:
		return m.handleConfirmDelete(msg)

	case StateRenaming:
		return m.handleRename(msg)

	case StateCorrecting:
		return m.handleCorrecting(msg)
	}

	if m.shell.View() == review.ViewHistory {
		return m.handleHistoryKeys(msg)
	}
	return m.handleReviewKeys(msg)
}

// handleReviewKeys handles keys on the main review screen.
func (m *Model) handleReviewKeys(msg tea.KeyMsg) tea.Cmd {
	active := m.shell.Active()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.state = StateHelp
		return nil

	case key.Matches(msg, m.keymap.ToggleView):
		m.shell.SetView(review.ViewHistory)
		m.history.SetState(review.LoadLoading, nil)
		return m.loadHistory()

	case key.Matches(msg, m.keymap.Dismiss):
		m.notice = review.Notice{}
		return nil

	case key.Matches(msg, m.keymap.Refresh):
		return m.forceRefresh()

	case key.Matches(msg, m.keymap.Approve):
		return m.requestAction(review.ActionApprove, active)

	case key.Matches(msg, m.keymap.Discard):
		return m.requestAction(review.ActionDiscard, active)

	case key.Matches(msg, m.keymap.Rename):
		entry, ok := m.inbox.Entry(active)
		if !ok {
			return nil
		}
		m.state = StateRenaming
		m.router.SetFocus(review.FocusTextInput)
		m.renameInput.SetValue(entry.Title)
		m.renameInput.CursorEnd()
		return m.renameInput.Focus()

	case key.Matches(msg, m.keymap.Delete):
		if _, ok := m.inbox.Entry(active); ok {
			m.shell.RequestDelete(active)
			m.state = StateConfirmDelete
		}
		return nil
	}

	var inboxCmd, gridCmd tea.Cmd
	m.inboxView, inboxCmd = m.inboxView.Update(msg)
	m.grid, gridCmd = m.grid.Update(msg)
	return tea.Batch(inboxCmd, gridCmd)
}

// handleHistoryKeys handles keys on the history table.
func (m *Model) handleHistoryKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.state = StateHelp
		return nil

	case key.Matches(msg, m.keymap.ToggleView):
		m.shell.SetView(review.ViewReview)
		return nil

	case key.Matches(msg, m.keymap.Dismiss):
		m.notice = review.Notice{}
		return nil

	case key.Matches(msg, m.keymap.Refresh):
		m.history.SetState(review.LoadLoading, nil)
		return m.loadHistory()
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return cmd
}

// handleCorrecting handles keys while the correction panel is open.
// Left and right go through the router, which ignores them while the
// search input has focus.
func (m *Model) handleCorrecting(msg tea.KeyMsg) tea.Cmd {
	var dir review.Direction
	navigate := false
	switch {
	case key.Matches(msg, m.keymap.Left):
		dir, navigate = review.DirectionPrev, true
	case key.Matches(msg, m.keymap.Right):
		dir, navigate = review.DirectionNext, true
	}

	if navigate && m.router.Route(dir) {
		idx := m.detections.EditingIndex()
		m.correction.SetPosition(idx, m.detections.Len())
		m.grid.SetCursor(idx)
		return nil
	}

	var cmd tea.Cmd
	m.correction, cmd = m.correction.Update(msg)
	m.router.SetFocus(m.panelFocus())
	return cmd
}

// handleConfirmDelete handles the delete confirmation prompt.
func (m *Model) handleConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Confirm):
		m.state = StateReview
		if scanID, ok := m.shell.ConfirmDelete(); ok {
			return m.deleteScan(scanID)
		}
	case key.Matches(msg, m.keymap.Cancel):
		m.state = StateReview
		m.shell.CancelDelete()
	}
	return nil
}

// handleRename handles the rename prompt.
func (m *Model) handleRename(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.endRename()
		return nil

	case "enter":
		title := strings.TrimSpace(m.renameInput.Value())
		if title == "" {
			m.notice = review.Notice{Level: review.NoticeWarning, Message: "Title cannot be empty"}
			return nil
		}
		scanID := m.shell.Active()
		m.endRename()
		return m.renameScan(scanID, title)
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return cmd
}

func (m *Model) endRename() {
	m.state = StateReview
	m.renameInput.Blur()
	m.renameInput.Reset()
	m.router.SetFocus(review.FocusNone)
}

// requestAction applies an approve or discard optimistically and returns
// the command that performs it. A request for a scan that already has an
// action in flight is dropped.
func (m *Model) requestAction(action review.Action, scanID string) tea.Cmd {
	if scanID == "" {
		return nil
	}

	var started bool
	switch action {
	case review.ActionApprove:
		started = m.shell.RequestApprove(scanID)
	case review.ActionDiscard:
		started = m.shell.RequestDiscard(scanID)
	}
	if !started {
		return nil
	}

	common.LogDebug("Scan action started", common.Fields{
		"scan_id": scanID,
		"action":  action.String(),
	})
	return tea.Batch(m.runAction(action, scanID), m.syncDetections())
}

func (m *Model) handleActionDone(msg actionDoneMsg) tea.Cmd {
	m.notice = m.shell.Complete(msg.outcome)
	return tea.Batch(m.loadInbox(), m.syncDetections())
}

func (m *Model) handleCorrectionDone(msg correctionDoneMsg) tea.Cmd {
	if m.panel != nil && m.panel.Detection().ID == msg.detectionID {
		m.panel.FinishSelect(msg.card, msg.err)
	}

	if msg.err != nil {
		m.notice = review.Notice{
			Level:   review.NoticeError,
			Message: "Could not update detection: " + common.UserMessage(msg.err),
		}
	} else {
		// The selection can move while the commit is in flight. A scan no
		// longer on screen refetches when it is reopened.
		if msg.scanID != m.detections.ScanID() || !m.detections.ApplyCorrection(msg.detectionID, msg.card) {
			m.cache.Invalidate(review.DetectionsKey(msg.scanID))
		}
		m.notice = review.Notice{Level: review.NoticeInfo, Message: "Linked " + msg.card.Label()}
	}

	m.router.SetFocus(m.panelFocus())
	return m.correction.Refresh()
}

func (m *Model) handleScanEdited(msg scanEditedMsg) tea.Cmd {
	if msg.err != nil {
		common.LogError(msg.err, "Scan edit failed", common.Fields{
			"scan_id": msg.scanID,
			"op":      string(msg.op),
		})
		m.notice = review.Notice{
			Level:   review.NoticeError,
			Message: fmt.Sprintf("Could not %s scan: %s", msg.op, common.UserMessage(msg.err)),
		}
		return nil
	}

	switch msg.op {
	case opDelete:
		m.shell.Deleted(msg.scanID)
		m.notice = review.Notice{Level: review.NoticeInfo, Message: "Scan deleted"}
	default:
		m.inbox.Invalidate()
		m.notice = review.Notice{Level: review.NoticeInfo, Message: fmt.Sprintf("Renamed to %q", msg.title)}
	}
	return tea.Batch(m.loadInbox(), m.syncDetections())
}

// refreshInbox shows the cached inbox if there is one and fetches otherwise.
func (m *Model) refreshInbox() tea.Cmd {
	cached, ok := m.inbox.Cached()
	if !ok {
		return m.loadInbox()
	}
	previous := m.inbox.Visible()
	m.inbox.Loaded(cached)
	m.shell.Sync(previous)
	return m.syncDetections()
}

// forceRefresh drops cached reads and fetches the inbox and the active
// scan's detections again.
func (m *Model) forceRefresh() tea.Cmd {
	m.inbox.Invalidate()
	cmds := []tea.Cmd{m.loadInbox()}

	if active := m.shell.Active(); active != "" {
		m.cache.Invalidate(review.DetectionsKey(active))
		m.detections.BeginLoad(active)
		cmds = append(cmds, m.loadDetections(active))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleInboxLoaded(msg inboxLoadedMsg) tea.Cmd {
	if msg.seq != m.inboxSeq {
		return nil
	}

	if msg.err != nil {
		common.LogError(msg.err, "Failed to load inbox", nil)
		m.inbox.Failed(fmt.Errorf("failed to load inbox: %w", msg.err))
		return nil
	}

	previous := m.inbox.Visible()
	m.inbox.Loaded(msg.entries)
	m.shell.Sync(previous)
	return m.syncDetections()
}

func (m *Model) handleDetectionsLoaded(msg detectionsLoadedMsg) {
	if msg.err != nil {
		if m.detections.Failed(msg.scanID, fmt.Errorf("failed to load detections: %w", msg.err)) {
			common.LogError(msg.err, "Failed to load detections", common.Fields{"scan_id": msg.scanID})
		}
		return
	}
	m.detections.Loaded(msg.scanID, msg.detections)
}

func (m *Model) handleHistoryLoaded(msg historyLoadedMsg) {
	if msg.err != nil {
		common.LogError(msg.err, "Failed to load history", nil)
		m.history.SetState(review.LoadFailed, fmt.Errorf("failed to load history: %w", msg.err))
		return
	}
	m.history.SetScans(msg.scans)
	m.history.SetState(review.LoadLoaded, nil)
}

// syncDetections points the detection list at the active scan, loading
// it from cache or the backend when the active scan changed.
func (m *Model) syncDetections() tea.Cmd {
	active := m.shell.Active()
	if active == m.detections.ScanID() {
		return nil
	}

	m.closeCorrection()
	if active == "" {
		m.detections.Reset()
		return nil
	}

	m.detections.BeginLoad(active)
	if cached, ok := m.detections.Cached(active); ok {
		m.detections.Loaded(active, cached)
		return nil
	}
	return m.loadDetections(active)
}

// openCorrection opens the correction panel on detection idx and installs
// its previous/next navigation.
func (m *Model) openCorrection(idx int) {
	if !m.detections.OpenAt(idx) {
		return
	}
	d, _ := m.detections.Editing()

	m.panel = review.NewCorrectionPanel(d, m.config.MinQueryLength)
	m.unregister = m.router.Register(panelNavigator{list: m.detections, panel: m.panel})
	m.router.SetFocus(review.FocusNone)
	m.correction.Open(m.panel, idx, m.detections.Len())
	m.grid.SetCursor(idx)
	m.state = StateCorrecting
}

func (m *Model) closeCorrection() {
	if m.unregister != nil {
		m.unregister()
		m.unregister = nil
	}
	m.detections.Close()
	m.panel = nil
	m.correction.Close()
	m.router.SetFocus(review.FocusNone)
	if m.state == StateCorrecting {
		m.state = StateReview
	}
}

func (m Model) panelFocus() review.FocusKind {
	if m.correction.Replacing() {
		return review.FocusTextInput
	}
	return review.FocusNone
}

// syncViews copies review state into the components before rendering.
func (m *Model) syncViews() {
	active := m.shell.Active()
	m.inboxView.SetEntries(m.inbox.Visible(), active)
	m.inboxView.SetState(m.inbox.State(), m.inbox.Err())

	title := ""
	if entry, ok := m.inbox.Entry(active); ok {
		title = entry.Title
	}
	m.grid.SetTiles(title, m.detections.Tiles())
	m.grid.SetState(m.detections.State(), m.detections.Err())
}

// resize distributes the terminal between the panes.
func (m *Model) resize() {
	inboxWidth := min(max(m.width/4, 24), 40)
	mainWidth := max(m.width-inboxWidth-3, 20)
	bodyHeight := max(m.height-4, 5)

	m.inboxView.Resize(inboxWidth, bodyHeight)
	m.grid.Resize(mainWidth, bodyHeight)
	m.correction.Resize(mainWidth, bodyHeight)
	m.history.Resize(max(m.width-2, 20), bodyHeight)
	m.renameInput.Width = max(mainWidth-10, 10)
	m.help.Width = m.width
}

// panelNavigator moves the correction panel between the detections of
// the active scan.
type panelNavigator struct {
	list  *review.DetectionList
	panel *review.CorrectionPanel
}

func (n panelNavigator) Next() {
	n.list.Next()
	n.retarget()
}

func (n panelNavigator) Prev() {
	n.list.Prev()
	n.retarget()
}

func (n panelNavigator) retarget() {
	if d, ok := n.list.Editing(); ok {
		n.panel.Retarget(d)
	}
}
