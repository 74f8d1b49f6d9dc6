package ports

import (
	"context"

	"github.com/fluxmind/flux/internal/domain"
)

// ThoughtRepository is the persistent store boundary for the thought
// collection. Load applies the completed-retention pruning rule before
// returning; Save replaces the stored collection with the given one.
type ThoughtRepository interface {
	Load(ctx context.Context) ([]domain.Thought, error)
	Save(ctx context.Context, thoughts []domain.Thought) error
	Close() error
}
