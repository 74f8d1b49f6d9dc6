package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/services"
)

// verdictMsg is sent when classification completes
type verdictMsg struct{}

// SortingView drives one thought through the sorting flow: classification
// spinner, verdict presentation, commitment confirmation, and slot
// selection. The state lives in the session; this component only renders it
// and translates key presses into session transitions.
type SortingView struct {
	Completed    bool // Exported so Model can check completion
	confirmForm  *huh.Form
	confirmValue bool
	session      *services.SortingSession
	slotForm     *huh.Form
	slotValue    services.SlotWindow
	spinner      spinner.Model
}

// NewSortingView opens the sorting flow for an already-started session.
func NewSortingView(session *services.SortingSession) *SortingView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &SortingView{
		session: session,
		spinner: s,
	}
}

func (sv *SortingView) Init() tea.Cmd {
	if sv.session.State() == services.StateCollectingVerdict {
		return tea.Batch(sv.spinner.Tick, sv.classifyCmd())
	}
	return nil
}

// classifyCmd collects the verdict off the UI loop.
func (sv *SortingView) classifyCmd() tea.Cmd {
	return func() tea.Msg {
		if err := sv.session.Classify(context.Background()); err != nil {
			// Session was already past collecting; nothing to do.
			return verdictMsg{}
		}
		return verdictMsg{}
	}
}

func (sv *SortingView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(verdictMsg); ok {
		if sv.session.Closed() {
			sv.Completed = true
		}
		return sv, nil
	}

	switch sv.session.State() {
	case services.StateCollectingVerdict:
		return sv.updateCollecting(msg)
	case services.StatePresentingVerdict:
		return sv.updatePresenting(msg)
	case services.StateConfirmingCommit:
		return sv.updateConfirming(msg)
	case services.StateSelectingSlot:
		return sv.updateSelectingSlot(msg)
	}
	sv.Completed = true
	return sv, nil
}

func (sv *SortingView) updateCollecting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			sv.session.Cancel()
			sv.Completed = true
			return sv, nil
		case "r":
			sv.session.Release(context.Background())
			sv.Completed = true
			return sv, nil
		}
	}
	var cmd tea.Cmd
	sv.spinner, cmd = sv.spinner.Update(msg)
	return sv, cmd
}

func (sv *SortingView) updatePresenting(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return sv, nil
	}
	switch keyMsg.String() {
	case "a", "enter":
		if sv.session.Verdict().Category == domain.CategoryAccept {
			sv.session.Accept(context.Background())
			sv.Completed = true
			return sv, nil
		}
		return sv.beginCommit()
	case "c":
		return sv.beginCommit()
	case "r":
		sv.session.Release(context.Background())
		sv.Completed = true
		return sv, nil
	case "esc":
		sv.session.Cancel()
		sv.Completed = true
		return sv, nil
	}
	return sv, nil
}

func (sv *SortingView) beginCommit() (tea.Model, tea.Cmd) {
	if err := sv.session.BeginCommit(); err != nil {
		return sv, nil
	}
	sv.confirmValue = false
	sv.confirmForm = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Commit to acting on this?").
			Description("A commitment gets a weight and a concrete time slot").
			Value(&sv.confirmValue).
			Affirmative("Commit").
			Negative("Not yet"),
	))
	return sv, sv.confirmForm.Init()
}

func (sv *SortingView) updateConfirming(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		sv.session.DeclineCommit()
		sv.confirmForm = nil
		return sv, nil
	}

	form, cmd := sv.confirmForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		sv.confirmForm = f
	}

	if sv.confirmForm.State == huh.StateCompleted {
		if !sv.confirmValue {
			sv.session.DeclineCommit()
			sv.confirmForm = nil
			return sv, nil
		}
		sv.session.ConfirmCommit()
		sv.confirmForm = nil
		sv.slotValue = services.SlotToday
		sv.slotForm = huh.NewForm(huh.NewGroup(
			huh.NewSelect[services.SlotWindow]().
				Title("When?").
				Options(
					huh.NewOption("Today", services.SlotToday),
					huh.NewOption("Tomorrow", services.SlotTomorrow),
					huh.NewOption("This weekend", services.SlotWeekend),
				).
				Value(&sv.slotValue),
		))
		return sv, sv.slotForm.Init()
	}

	return sv, cmd
}

func (sv *SortingView) updateSelectingSlot(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		sv.session.Cancel()
		sv.slotForm = nil
		sv.Completed = true
		return sv, nil
	}

	form, cmd := sv.slotForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		sv.slotForm = f
	}

	if sv.slotForm.State == huh.StateCompleted {
		sv.session.SelectSlot(context.Background(), sv.slotValue)
		sv.slotForm = nil
		sv.Completed = true
	}

	return sv, cmd
}

func (sv *SortingView) View() string {
	switch sv.session.State() {
	case services.StateCollectingVerdict:
		return fmt.Sprintf("\n%s Consulting the sieve...\n\n%s\n", sv.spinner.View(), dimStyle.Render("r release · esc cancel"))
	case services.StatePresentingVerdict:
		return sv.renderVerdict()
	case services.StateConfirmingCommit:
		if sv.confirmForm != nil {
			return sv.confirmForm.View()
		}
	case services.StateSelectingSlot:
		if sv.slotForm != nil {
			return sv.slotForm.View()
		}
	}
	return ""
}

func (sv *SortingView) renderVerdict() string {
	v := sv.session.Verdict()
	t := sv.session.Thought()

	var b strings.Builder
	b.WriteString(normalStyle.Render(t.Content) + "\n\n")

	if v.Category == domain.CategoryAccept {
		b.WriteString(acceptStyle.Render("LET THEM") + dimStyle.Render("  outside your control") + "\n")
	} else {
		b.WriteString(actStyle.Render("LET ME") + dimStyle.Render("  yours to act on") + "\n")
	}
	if v.Reasoning != "" {
		b.WriteString(normalStyle.Render(v.Reasoning) + "\n")
	}
	if v.Reframing != "" {
		b.WriteString("\n" + normalStyle.Render(v.Reframing) + "\n")
	}
	if v.InsightQuote != "" {
		b.WriteString(quoteStyle.Render("“"+v.InsightQuote+"”") + "\n")
	}
	if len(v.SubTasks) > 0 {
		b.WriteString("\n")
		for _, st := range v.SubTasks {
			b.WriteString(dimStyle.Render("- "+st) + "\n")
		}
	}
	if v.TimeEstimate != "" {
		b.WriteString(dimStyle.Render("Estimate: "+v.TimeEstimate) + "\n")
	}

	b.WriteString("\n")
	if v.Category == domain.CategoryAccept {
		b.WriteString(helpStyle.Render("a accept · c commit anyway · r release · esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("c commit · r release · esc cancel"))
	}
	return b.String()
}
