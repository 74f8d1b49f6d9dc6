package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/services"
)

type uiState int

const (
	stateList uiState = iota
	stateCapturing
	stateSorting
)

// refreshTickMsg drives periodic list refresh and toast expiry rendering
type refreshTickMsg struct{}

// insightMsg carries the grounding summary once it arrives
type insightMsg struct {
	text string
}

// deconstructedMsg carries the fragments of an exploded thought
type deconstructedMsg struct {
	fragments  []string
	originalID string
}

// clearNoticeMsg is sent after the notice display delay
type clearNoticeMsg struct{}

// clearErrorMsg is sent after the error display delay
type clearErrorMsg struct{}

const refreshInterval = 500 * time.Millisecond

// ModelConfig carries everything the root model needs.
type ModelConfig struct {
	Registry *services.ThoughtService
	Triage   *services.TriageService
	Undo     *services.UndoCoordinator
}

// Model is the root Bubble Tea model: three thought views, capture and
// sorting sub-flows, the undo toast, and the grounding insight header.
type Model struct {
	activeView  View
	captureForm *CaptureForm
	err         error
	height      int
	insight     string
	keys        KeyMap
	lists       [3]*ThoughtList
	notice      string
	registry    *services.ThoughtService
	sortingView *SortingView
	state       uiState
	triage      *services.TriageService
	undo        *services.UndoCoordinator
	width       int
}

// NewModel creates the root model from its config.
func NewModel(cfg ModelConfig) *Model {
	m := &Model{
		keys:     NewKeyMap(),
		registry: cfg.Registry,
		state:    stateList,
		triage:   cfg.Triage,
		undo:     cfg.Undo,
	}
	for v := ViewNebula; v <= ViewStillness; v++ {
		m.lists[v] = NewThoughtList(v)
	}
	m.refreshLists()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(refreshTick(), m.insightCmd(), m.prefetchCmd())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// insightCmd fetches the grounding summary off the UI loop.
func (m *Model) insightCmd() tea.Cmd {
	return func() tea.Msg {
		return insightMsg{text: m.triage.Insight(context.Background())}
	}
}

// prefetchCmd warms the verdict cache for the unsorted backlog.
func (m *Model) prefetchCmd() tea.Cmd {
	unsorted := m.registry.ByStatus(domain.StatusUnsorted)
	if len(unsorted) == 0 {
		return nil
	}
	return func() tea.Msg {
		m.triage.PrefetchVerdicts(context.Background(), unsorted)
		return nil
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case refreshTickMsg:
		m.refreshLists()
		return m, refreshTick()
	case insightMsg:
		m.insight = msg.text
		return m, nil
	case clearNoticeMsg:
		m.notice = ""
		return m, nil
	case clearErrorMsg:
		m.err = nil
		return m, nil
	case deconstructedMsg:
		m.registry.Remove(context.Background(), msg.originalID)
		added := m.registry.AddAll(context.Background(), msg.fragments)
		m.refreshLists()
		m.notice = fmt.Sprintf("Deconstructed into %d thoughts", len(added))
		return m, clearNoticeAfterDelay()
	}

	switch m.state {
	case stateCapturing:
		return m.updateCapturing(msg)
	case stateSorting:
		return m.updateSorting(msg)
	}
	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	list := m.lists[m.activeView]

	switch {
	case key.Matches(keyMsg, m.keys.Application.Quit), key.Matches(keyMsg, m.keys.Application.ForceQuit):
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Navigation.Up):
		list.MoveUp()
	case key.Matches(keyMsg, m.keys.Navigation.Down):
		list.MoveDown()
	case key.Matches(keyMsg, m.keys.Navigation.NextView):
		m.activeView = (m.activeView + 1) % 3
	case key.Matches(keyMsg, m.keys.Navigation.PrevView):
		m.activeView = (m.activeView + 2) % 3

	case key.Matches(keyMsg, m.keys.Application.Capture):
		m.captureForm = NewCaptureForm()
		m.state = stateCapturing
		return m, m.captureForm.Init()

	case key.Matches(keyMsg, m.keys.Application.Undo):
		if m.undo.Undo() {
			m.refreshLists()
		}

	case key.Matches(keyMsg, m.keys.Application.Cleanse):
		return m, m.cleanseActiveView()

	case key.Matches(keyMsg, m.keys.Thought.Sort):
		if m.activeView != ViewNebula {
			return m, nil
		}
		if t, ok := list.Selected(); ok {
			return m, m.startSorting(t.ID)
		}

	case key.Matches(keyMsg, m.keys.Thought.Done):
		if m.activeView != ViewAction {
			return m, nil
		}
		if t, ok := list.Selected(); ok && t.Status == domain.StatusLetMe {
			m.completeThought(t)
		}

	case key.Matches(keyMsg, m.keys.Thought.Release):
		if t, ok := list.Selected(); ok {
			m.releaseThought(t)
		}

	case key.Matches(keyMsg, m.keys.Thought.ToggleStep):
		if t, ok := list.Selected(); ok && len(t.SubTasks) > 0 {
			m.registry.ToggleSubTask(context.Background(), t.ID, nextOpenSubTask(t))
			m.refreshLists()
		}

	case key.Matches(keyMsg, m.keys.Thought.Calendar):
		if t, ok := list.Selected(); ok && t.Status == domain.StatusLetMe {
			m.notice = services.BuildCalendarLink(t, time.Now())
			return m, clearNoticeAfterDelay()
		}

	case key.Matches(keyMsg, m.keys.Thought.Deconstruct):
		if m.activeView != ViewNebula {
			return m, nil
		}
		if t, ok := list.Selected(); ok {
			return m, m.deconstructCmd(t)
		}
	}

	return m, nil
}

func (m *Model) updateCapturing(msg tea.Msg) (tea.Model, tea.Cmd) {
	newForm, cmd := m.captureForm.Update(msg)
	if cf, ok := newForm.(*CaptureForm); ok {
		m.captureForm = cf
	}

	if !m.captureForm.Completed {
		return m, cmd
	}

	result := m.captureForm.Result()
	m.captureForm = nil
	m.state = stateList

	if result.Cancelled {
		return m, nil
	}

	thought, err := m.registry.Add(context.Background(), result.Content)
	if err != nil {
		m.err = err
		return m, clearErrorAfterDelay()
	}
	m.refreshLists()

	if result.Deconstruct {
		return m, m.deconstructCmd(thought)
	}
	return m, m.prefetchCmd()
}

func (m *Model) updateSorting(msg tea.Msg) (tea.Model, tea.Cmd) {
	newView, cmd := m.sortingView.Update(msg)
	if sv, ok := newView.(*SortingView); ok {
		m.sortingView = sv
	}

	if m.sortingView.Completed {
		m.sortingView = nil
		m.state = stateList
		m.refreshLists()
		return m, nil
	}
	return m, cmd
}

// startSorting opens a sorting session for the given thought.
func (m *Model) startSorting(id string) tea.Cmd {
	session, err := m.triage.StartSession(id)
	if err != nil {
		logging.Logger.Error("Failed to start sorting session", "error", err, "id", id)
		m.err = err
		return clearErrorAfterDelay()
	}
	m.sortingView = NewSortingView(session)
	m.state = stateSorting
	return m.sortingView.Init()
}

func (m *Model) completeThought(t domain.Thought) {
	previous := t.Status
	m.registry.MarkCompleted(context.Background(), t.ID)
	m.undo.Record("Thought completed", func() {
		m.registry.Reopen(context.Background(), t.ID, previous)
	})
	m.refreshLists()
}

func (m *Model) releaseThought(t domain.Thought) {
	removed, ok := m.registry.Remove(context.Background(), t.ID)
	if !ok {
		return
	}
	m.undo.Record("Thought released", func() {
		m.registry.Restore(context.Background(), removed)
	})
	m.refreshLists()
}

// cleanseActiveView releases every thought in the current view at once.
func (m *Model) cleanseActiveView() tea.Cmd {
	status := m.activeView.status()
	removed := m.registry.BulkRemoveByStatus(context.Background(), status)
	if len(removed) == 0 {
		return nil
	}
	m.undo.Record(fmt.Sprintf("Released %d thoughts", len(removed)), func() {
		m.registry.RestoreAll(context.Background(), removed)
	})
	m.refreshLists()
	return nil
}

// deconstructCmd explodes a thought into fragments off the UI loop.
func (m *Model) deconstructCmd(t domain.Thought) tea.Cmd {
	return func() tea.Msg {
		fragments := m.triage.Deconstruct(context.Background(), t.Content)
		return deconstructedMsg{fragments: fragments, originalID: t.ID}
	}
}

func clearNoticeAfterDelay() tea.Cmd {
	return tea.Tick(8*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// clearErrorAfterDelay returns a command that sends clearErrorMsg after a delay
func clearErrorAfterDelay() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

func (v View) status() domain.ThoughtStatus {
	switch v {
	case ViewAction:
		return domain.StatusLetMe
	case ViewStillness:
		return domain.StatusLetThem
	default:
		return domain.StatusUnsorted
	}
}

// refreshLists rebuilds the three views from the registry. The action view
// includes recently completed thoughts so finishing something stays visible
// until retention prunes it.
func (m *Model) refreshLists() {
	var nebula, action, stillness []domain.Thought
	for _, t := range m.registry.Thoughts() {
		switch t.Status {
		case domain.StatusUnsorted:
			nebula = append(nebula, t)
		case domain.StatusLetMe, domain.StatusCompleted:
			action = append(action, t)
		case domain.StatusLetThem:
			stillness = append(stillness, t)
		}
	}
	m.lists[ViewNebula].SetThoughts(nebula)
	m.lists[ViewAction].SetThoughts(action)
	m.lists[ViewStillness].SetThoughts(stillness)
}

// nextOpenSubTask picks the first unchecked sub-task, falling back to the
// first one so toggling always has a target.
func nextOpenSubTask(t domain.Thought) string {
	for _, st := range t.SubTasks {
		if !st.Completed {
			return st.ID
		}
	}
	return t.SubTasks[0].ID
}

func (m *Model) View() string {
	switch m.state {
	case stateCapturing:
		if m.captureForm != nil {
			return m.captureForm.View()
		}
	case stateSorting:
		if m.sortingView != nil {
			return m.sortingView.View()
		}
	}
	return m.viewList()
}

func (m *Model) viewList() string {
	counts := m.registry.Counts()

	view := titleStyle.Render("Flux") + "\n"
	view += m.renderTabs(counts) + "\n"
	if m.insight != "" {
		view += quoteStyle.Render(m.insight) + "\n"
	}
	view += "\n" + m.lists[m.activeView].View()

	if m.undo.Active() {
		view += "\n" + toastStyle.Render(m.undo.Message()+"  (u to undo)")
	}
	if m.notice != "" {
		view += "\n" + dimStyle.Render(m.notice)
	}
	if m.err != nil {
		view += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	view += "\n" + helpStyle.Render(m.helpText())
	return view
}

func (m *Model) renderTabs(counts services.Counts) string {
	tabs := [3]string{
		fmt.Sprintf("Nebula %d", counts.Unsorted),
		fmt.Sprintf("Action %d", counts.Action),
		fmt.Sprintf("Stillness %d", counts.Stillness),
	}
	var out string
	for v := ViewNebula; v <= ViewStillness; v++ {
		style := tabStyle
		if v == m.activeView {
			style = activeTabStyle
		}
		out += style.Render(tabs[v])
	}
	return out
}

func (m *Model) helpText() string {
	switch m.activeView {
	case ViewAction:
		return "space done · r release · t toggle step · g calendar · tab view · n new · q quit"
	case ViewStillness:
		return "r release · C cleanse · tab view · n new · q quit"
	default:
		return "enter sort · x deconstruct · r release · tab view · n new · q quit"
	}
}
