package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fluxmind/flux/internal/domain"
)

const calendarRenderBase = "https://calendar.google.com/calendar/render"

// BuildCalendarLink produces a Google Calendar event-creation URL for an
// actionable thought. No calendar API credentials are involved: the link
// opens the provider's own creation page with the event prefilled.
//
// The event starts at the thought's due date, or at the next full hour when
// none is set. Duration is 60 minutes when the time estimate carries an
// hour marker, 30 minutes otherwise.
func BuildCalendarLink(t domain.Thought, now time.Time) string {
	start := nextFullHour(now)
	if t.DueDate != nil {
		start = *t.DueDate
	}
	end := start.Add(30 * time.Minute)
	if hasHourMarker(t.TimeEstimate) {
		end = start.Add(60 * time.Minute)
	}

	strategy := t.ReframedContent
	if strategy == "" {
		strategy = "Direct Action"
	}
	quote := t.StoicQuote
	if quote == "" {
		quote = "N/A"
	}

	var details strings.Builder
	fmt.Fprintf(&details, "Flux Stoic Strategy: %s\n\n", strategy)
	fmt.Fprintf(&details, "Priority: %s\n", priorityText(t.Weight))
	fmt.Fprintf(&details, "Insight: %s", quote)
	if len(t.SubTasks) > 0 {
		details.WriteString("\n\nSteps:")
		for _, st := range t.SubTasks {
			fmt.Fprintf(&details, "\n- %s", st.Text)
		}
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", t.Content)
	q.Set("dates", fmt.Sprintf("%s/%s", calendarStamp(start), calendarStamp(end)))
	q.Set("details", details.String())
	return calendarRenderBase + "?" + q.Encode()
}

// calendarStamp formats a time the way the render endpoint expects:
// basic-format UTC with no separators.
func calendarStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func hasHourMarker(estimate string) bool {
	return strings.Contains(estimate, "h") || strings.Contains(estimate, "小时")
}

func priorityText(w *domain.Weight) string {
	if w == nil {
		return "Standard"
	}
	switch *w {
	case domain.WeightUrgent:
		return "Urgent"
	case domain.WeightImportant:
		return "Important"
	default:
		return "Casual"
	}
}
