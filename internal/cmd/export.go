package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/services"
)

// ExportCmd dumps the full thought collection as JSON, or prints the
// calendar deep-link for a single committed thought when an id is given.
type ExportCmd struct {
	ID     string `arg:"" optional:"" help:"Print a calendar link for this thought instead (unique prefix accepted)"`
	Output string `help:"Write to a file instead of stdout" short:"o" type:"path"`
}

// exportEnvelope wraps the dump with enough metadata to reimport it later.
type exportEnvelope struct {
	ExportedAt time.Time   `json:"exported_at"`
	Thoughts   any `json:"thoughts"`
}

// Run executes the export command
func (e *ExportCmd) Run(cli *CLI) error {
	if e.ID != "" {
		id, err := resolveThoughtID(cli.Container.Registry, e.ID)
		if err != nil {
			return err
		}
		thought, _ := cli.Container.Registry.Get(id)
		if thought.Status != domain.StatusLetMe {
			return fmt.Errorf("thought %s has no scheduled action to export", id)
		}
		fmt.Println(services.BuildCalendarLink(thought, time.Now()))
		return nil
	}

	envelope := exportEnvelope{
		ExportedAt: time.Now().UTC(),
		Thoughts:   cli.Container.Registry.Thoughts(),
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	if e.Output == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(e.Output, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	fmt.Printf("Exported %d thoughts to %s\n", len(cli.Container.Registry.Thoughts()), e.Output)
	return nil
}
