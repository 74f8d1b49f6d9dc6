package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ui"
)

// RunCmd starts the TUI application
type RunCmd struct{}

// Run executes the TUI
func (r *RunCmd) Run(cli *CLI) error {
	logging.Logger.Info("Starting flux TUI")

	p := tea.NewProgram(
		ui.NewModel(ui.ModelConfig{
			Registry: cli.Container.Registry,
			Triage:   cli.Container.Triage,
			Undo:     cli.Container.Undo,
		}),
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	if _, err := p.Run(); err != nil {
		logging.Logger.Error("TUI program error", "error", err)
		return fmt.Errorf("error running program: %w", err)
	}

	logging.Logger.Info("TUI program exited normally")
	return nil
}
