package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxmind/flux/internal/domain"
)

// View identifies one of the three thought lists.
type View int

const (
	ViewNebula View = iota
	ViewAction
	ViewStillness
)

func (v View) Title() string {
	switch v {
	case ViewAction:
		return "Action"
	case ViewStillness:
		return "Stillness"
	default:
		return "Nebula"
	}
}

// ThoughtList renders one view's thoughts with a movable cursor.
type ThoughtList struct {
	cursor   int
	thoughts []domain.Thought
	view     View
}

// NewThoughtList creates an empty list for the given view.
func NewThoughtList(view View) *ThoughtList {
	return &ThoughtList{view: view}
}

// SetThoughts replaces the list contents, clamping the cursor.
func (l *ThoughtList) SetThoughts(thoughts []domain.Thought) {
	l.thoughts = thoughts
	if l.cursor >= len(thoughts) {
		l.cursor = len(thoughts) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// Selected returns the thought under the cursor.
func (l *ThoughtList) Selected() (domain.Thought, bool) {
	if len(l.thoughts) == 0 {
		return domain.Thought{}, false
	}
	return l.thoughts[l.cursor], true
}

// MoveUp moves the cursor one row up.
func (l *ThoughtList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor one row down.
func (l *ThoughtList) MoveDown() {
	if l.cursor < len(l.thoughts)-1 {
		l.cursor++
	}
}

// Len returns the number of thoughts in the list.
func (l *ThoughtList) Len() int {
	return len(l.thoughts)
}

// View renders the list.
func (l *ThoughtList) View() string {
	if len(l.thoughts) == 0 {
		return dimStyle.Render(l.emptyText())
	}

	var b strings.Builder
	for i, t := range l.thoughts {
		marker := "  "
		style := normalStyle
		if i == l.cursor {
			marker = "> "
			style = selectedStyle
		}

		line := t.Content
		if t.Status == domain.StatusLetThem && t.ReframedContent != "" {
			line = t.ReframedContent
		}
		b.WriteString(marker + style.Render(line))

		if badge := weightBadge(t.Weight); badge != "" {
			b.WriteString(" " + badge)
		}
		if t.DueDate != nil {
			b.WriteString(" " + dimStyle.Render(formatDue(*t.DueDate)))
		}
		b.WriteString("\n")

		if i == l.cursor {
			b.WriteString(l.renderDetails(t))
		}
	}
	return b.String()
}

// renderDetails expands quote and sub-tasks under the selected row.
func (l *ThoughtList) renderDetails(t domain.Thought) string {
	var b strings.Builder
	if t.StoicQuote != "" {
		b.WriteString("    " + quoteStyle.Render("“"+t.StoicQuote+"”") + "\n")
	}
	for _, st := range t.SubTasks {
		box := "[ ]"
		if st.Completed {
			box = "[x]"
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("    %s %s", box, st.Text)) + "\n")
	}
	return b.String()
}

func (l *ThoughtList) emptyText() string {
	switch l.view {
	case ViewAction:
		return "Nothing to act on. The nebula awaits sorting."
	case ViewStillness:
		return "Nothing accepted yet."
	default:
		return "The nebula is clear. Press n to capture a thought."
	}
}

func weightBadge(w *domain.Weight) string {
	if w == nil {
		return ""
	}
	switch *w {
	case domain.WeightUrgent:
		return urgentStyle.Render("!!")
	case domain.WeightImportant:
		return importantStyle.Render("!")
	}
	return ""
}

// formatDue renders a due date compactly, with just the clock time when the
// date is today.
func formatDue(due time.Time) string {
	now := time.Now()
	if due.Year() == now.Year() && due.YearDay() == now.YearDay() {
		return due.Format("15:04")
	}
	return due.Format("Jan 2 15:04")
}
