package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// CaptureFormResult contains the result of the thought capture form
type CaptureFormResult struct {
	Cancelled   bool
	Content     string
	Deconstruct bool
}

// CaptureForm is a Bubble Tea component for capturing a new thought
type CaptureForm struct {
	Completed bool // Exported so Model can check completion
	cancelled bool
	form      *huh.Form
	result    CaptureFormResult
}

// NewCaptureForm creates a new thought capture form
func NewCaptureForm() *CaptureForm {
	cf := &CaptureForm{}

	cf.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("What's on your mind?").
			Value(&cf.result.Content).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("thought cannot be empty")
				}
				return nil
			}),
		huh.NewConfirm().
			Title("Feels overwhelming?").
			Description("Break it into smaller independent thoughts before sorting").
			Value(&cf.result.Deconstruct).
			Affirmative("Deconstruct").
			Negative("Keep whole"),
	))

	return cf
}

func (cf *CaptureForm) Init() tea.Cmd {
	return cf.form.Init()
}

func (cf *CaptureForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" {
			cf.cancelled = true
			cf.result.Cancelled = true
			cf.Completed = true
			return cf, nil
		}
	}

	form, cmd := cf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		cf.form = f
	}

	if cf.form.State == huh.StateCompleted {
		cf.Completed = true
	}

	return cf, cmd
}

func (cf *CaptureForm) View() string {
	if cf.form != nil {
		return cf.form.View()
	}
	return ""
}

// Result returns the form result
func (cf *CaptureForm) Result() CaptureFormResult {
	return cf.result
}
