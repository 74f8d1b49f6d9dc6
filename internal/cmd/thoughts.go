package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/services"
)

// ThoughtsCmd groups thought management subcommands
type ThoughtsCmd struct {
	Add     ThoughtsAddCmd     `cmd:"add" help:"Capture a new thought into the nebula"`
	Cleanse ThoughtsCleanseCmd `cmd:"cleanse" help:"Release every thought in one view"`
	Done    ThoughtsDoneCmd    `cmd:"done" help:"Mark an actionable thought as completed"`
	List    ThoughtsListCmd    `cmd:"list" help:"List thoughts"`
	Release ThoughtsReleaseCmd `cmd:"release" help:"Release (remove) a thought"`
}

// viewStatus maps the CLI view names to thought statuses.
func viewStatus(view string) domain.ThoughtStatus {
	switch view {
	case "action":
		return domain.StatusLetMe
	case "stillness":
		return domain.StatusLetThem
	default:
		return domain.StatusUnsorted
	}
}

// ThoughtsAddCmd captures a new thought
type ThoughtsAddCmd struct {
	Content     []string `arg:"" help:"Thought content"`
	Deconstruct bool     `help:"Split the thought into independent fragments first" short:"x"`
}

// Run executes the add command
func (t *ThoughtsAddCmd) Run(cli *CLI) error {
	content := strings.Join(t.Content, " ")

	if t.Deconstruct {
		fragments := cli.Container.Triage.Deconstruct(context.Background(), content)
		added := cli.Container.Registry.AddAll(context.Background(), fragments)
		for _, thought := range added {
			fmt.Printf("%s  %s\n", thought.ID, thought.Content)
		}
		return nil
	}

	thought, err := cli.Container.Registry.Add(context.Background(), content)
	if err != nil {
		return fmt.Errorf("failed to add thought: %w", err)
	}
	fmt.Printf("%s  %s\n", thought.ID, thought.Content)
	return nil
}

// ThoughtsListCmd lists thoughts
type ThoughtsListCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
	View   string `help:"Restrict to one view" enum:",nebula,action,stillness" default:""`
}

// Run executes the list command
func (t *ThoughtsListCmd) Run(cli *CLI) error {
	var thoughts []domain.Thought
	if t.View == "" {
		thoughts = cli.Container.Registry.Thoughts()
	} else {
		thoughts = cli.Container.Registry.ByStatus(viewStatus(t.View))
	}

	if t.Format == "json" {
		return t.printJSON(thoughts)
	}
	return t.printTable(thoughts)
}

func (t *ThoughtsListCmd) printJSON(thoughts []domain.Thought) error {
	data, err := json.MarshalIndent(thoughts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func (t *ThoughtsListCmd) printTable(thoughts []domain.Thought) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tWEIGHT\tDUE\tCONTENT")
	for _, th := range thoughts {
		weight := ""
		if th.Weight != nil {
			weight = string(*th.Weight)
		}
		due := ""
		if th.DueDate != nil {
			due = th.DueDate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			th.ID,
			th.Status,
			weight,
			due,
			th.Content)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d thoughts\n", len(thoughts))
	return nil
}

// ThoughtsDoneCmd marks a thought completed
type ThoughtsDoneCmd struct {
	ID string `arg:"" help:"Thought id (unique prefix accepted)"`
}

// Run executes the done command
func (t *ThoughtsDoneCmd) Run(cli *CLI) error {
	id, err := resolveThoughtID(cli.Container.Registry, t.ID)
	if err != nil {
		return err
	}
	thought, _ := cli.Container.Registry.Get(id)
	if thought.Status != domain.StatusLetMe {
		return fmt.Errorf("thought %s is not in the action view", id)
	}
	cli.Container.Registry.MarkCompleted(context.Background(), id)
	fmt.Printf("Completed %s\n", id)
	return nil
}

// ThoughtsReleaseCmd removes a thought
type ThoughtsReleaseCmd struct {
	ID string `arg:"" help:"Thought id (unique prefix accepted)"`
}

// Run executes the release command
func (t *ThoughtsReleaseCmd) Run(cli *CLI) error {
	id, err := resolveThoughtID(cli.Container.Registry, t.ID)
	if err != nil {
		return err
	}
	if _, ok := cli.Container.Registry.Remove(context.Background(), id); !ok {
		return fmt.Errorf("thought %s: %w", id, domain.ErrThoughtNotFound)
	}
	fmt.Printf("Released %s\n", id)
	return nil
}

// ThoughtsCleanseCmd removes every thought in one view
type ThoughtsCleanseCmd struct {
	View string `arg:"" help:"View to cleanse" enum:"nebula,action,stillness"`
}

// Run executes the cleanse command
func (t *ThoughtsCleanseCmd) Run(cli *CLI) error {
	removed := cli.Container.Registry.BulkRemoveByStatus(context.Background(), viewStatus(t.View))
	fmt.Printf("Released %d thoughts from %s\n", len(removed), t.View)
	return nil
}

// resolveThoughtID matches a full id or a unique prefix.
func resolveThoughtID(registry *services.ThoughtService, idOrPrefix string) (string, error) {
	if _, ok := registry.Get(idOrPrefix); ok {
		return idOrPrefix, nil
	}

	var matches []string
	for _, t := range registry.Thoughts() {
		if strings.HasPrefix(t.ID, idOrPrefix) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("thought %s: %w", idOrPrefix, domain.ErrThoughtNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("thought id prefix %q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}
