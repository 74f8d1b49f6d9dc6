package ports

import (
	"context"

	"github.com/fluxmind/flux/internal/domain"
)

// Classifier is the classification gateway boundary. Implementations make a
// single attempt against the remote service; on any failure they return the
// deterministic fallback rather than an error, so sorting is never blocked.
type Classifier interface {
	// Classify analyzes one thought, optionally with a one-line calendar
	// busyness summary as extra context.
	Classify(ctx context.Context, content string, lang domain.Language, calendarContext string) (domain.Verdict, error)

	// Deconstruct splits raw capture into 1..N atomic fragments. Falls back
	// to a local punctuation split, and to the original content as a single
	// fragment if that yields nothing usable.
	Deconstruct(ctx context.Context, content string, lang domain.Language) ([]string, error)

	// Summarize produces a single short grounding insight for the current
	// unsorted cloud; empty string on failure.
	Summarize(ctx context.Context, thoughts []domain.Thought, lang domain.Language) string
}

// CalendarContextProvider supplies a summary of the user's schedule for
// classification context.
type CalendarContextProvider interface {
	FetchContext(ctx context.Context, lang domain.Language) (CalendarSummary, error)
}

// CalendarSummary describes current calendar busyness.
type CalendarSummary struct {
	BusyLevel string
	Events    []string
	Summary   string
}
