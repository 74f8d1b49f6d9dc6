package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
)

// ThoughtService is the authoritative in-memory thought collection and the
// single source of truth for status transitions. Every mutation is atomic
// with respect to the others and is followed by a fire-and-forget save; if
// the save fails, the in-memory state remains authoritative for the rest of
// the process.
type ThoughtService struct {
	mu       sync.Mutex
	now      func() time.Time
	repo     ports.ThoughtRepository
	thoughts []domain.Thought
}

// NewThoughtService creates a ThoughtService backed by the given store.
func NewThoughtService(repo ports.ThoughtRepository) *ThoughtService {
	return NewThoughtServiceWithClock(repo, time.Now)
}

// NewThoughtServiceWithClock is like NewThoughtService with an injectable
// clock.
func NewThoughtServiceWithClock(repo ports.ThoughtRepository, now func() time.Time) *ThoughtService {
	return &ThoughtService{now: now, repo: repo}
}

// Load reads the persisted collection into memory, applying the completed-
// retention pruning rule. Called once at process start.
func (s *ThoughtService) Load(ctx context.Context) error {
	thoughts, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The store already prunes, but the rule is a pure filter so applying
	// it again costs nothing and keeps the invariant local.
	s.thoughts = domain.PruneCompleted(thoughts, s.now())
	return nil
}

// Seed inserts the given thoughts when the collection is empty (first run).
func (s *ThoughtService) Seed(ctx context.Context, contents []string) {
	s.mu.Lock()
	if len(s.thoughts) > 0 {
		s.mu.Unlock()
		return
	}
	now := s.now()
	for _, content := range contents {
		s.thoughts = append(s.thoughts, domain.Thought{
			Content:   content,
			CreatedAt: now,
			ID:        domain.NewThoughtID(now),
			Status:    domain.StatusUnsorted,
		})
	}
	s.mu.Unlock()
	s.save(ctx)
}

// Thoughts returns a snapshot of the collection in insertion order.
func (s *ThoughtService) Thoughts() []domain.Thought {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ByStatus returns a snapshot of thoughts with the given status.
func (s *ThoughtService) ByStatus(status domain.ThoughtStatus) []domain.Thought {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Thought
	for _, t := range s.thoughts {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Counts reports how many thoughts sit in each view.
type Counts struct {
	Action    int
	Stillness int
	Unsorted  int
}

// Counts returns the per-view thought counts.
func (s *ThoughtService) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c Counts
	for _, t := range s.thoughts {
		switch t.Status {
		case domain.StatusUnsorted:
			c.Unsorted++
		case domain.StatusLetMe:
			c.Action++
		case domain.StatusLetThem:
			c.Stillness++
		}
	}
	return c
}

// Get returns the thought with the given id.
func (s *ThoughtService) Get(id string) (domain.Thought, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.thoughts {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Thought{}, false
}

// Add creates a new unsorted thought with a fresh id and the current
// timestamp. Content must be non-empty after trimming.
func (s *ThoughtService) Add(ctx context.Context, content string) (domain.Thought, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Thought{}, domain.ErrEmptyContent
	}

	s.mu.Lock()
	now := s.now()
	thought := domain.Thought{
		Content:   content,
		CreatedAt: now,
		ID:        domain.NewThoughtID(now),
		Status:    domain.StatusUnsorted,
	}
	s.thoughts = append(s.thoughts, thought)
	s.mu.Unlock()

	s.save(ctx)
	logging.Logger.Info("Thought captured", "id", thought.ID)
	return thought.Clone(), nil
}

// AddAll creates one unsorted thought per fragment, skipping blank ones.
func (s *ThoughtService) AddAll(ctx context.Context, fragments []string) []domain.Thought {
	var added []domain.Thought
	for _, f := range fragments {
		t, err := s.Add(ctx, f)
		if err != nil {
			continue
		}
		added = append(added, t)
	}
	return added
}

// VerdictFields carries the mutable fields a sorting decision writes onto a
// thought. Nil/empty fields are still applied: the decision replaces the
// thought's mutable state wholesale.
type VerdictFields struct {
	DueDate       *time.Time
	Reframing     string
	StoicQuote    string
	SubTasks      []domain.SubTask
	SuggestedSlot *domain.ClockTime
	TimeEstimate  string
	Weight        *domain.Weight
}

// ApplyVerdict moves the thought with the given id to status and writes the
// decision's fields. Silent no-op when the id is unknown, so a session that
// raced with a removal never errors. ID, content, and creation time are
// never altered; weight and due date are only populated on the actionable
// branch.
func (s *ThoughtService) ApplyVerdict(ctx context.Context, id string, status domain.ThoughtStatus, fields VerdictFields) {
	if !status.Valid() || status == domain.StatusUnsorted {
		logging.Logger.Warn("Ignoring verdict with invalid status", "id", id, "status", status)
		return
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		logging.Logger.Debug("ApplyVerdict on unknown thought", "id", id)
		return
	}

	t := &s.thoughts[idx]
	t.Status = status
	t.ReframedContent = fields.Reframing
	t.StoicQuote = fields.StoicQuote
	t.TimeEstimate = fields.TimeEstimate
	t.SuggestedSlot = fields.SuggestedSlot
	if status == domain.StatusLetMe {
		t.Weight = fields.Weight
		t.DueDate = fields.DueDate
		t.SubTasks = fields.SubTasks
	}
	s.mu.Unlock()

	s.save(ctx)
	logging.Logger.Info("Thought sorted", "id", id, "status", status)
}

// MarkCompleted sets the thought to completed with the current timestamp.
// No-op when the id is unknown or the thought is already completed.
func (s *ThoughtService) MarkCompleted(ctx context.Context, id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 || s.thoughts[idx].Status == domain.StatusCompleted {
		s.mu.Unlock()
		return
	}
	now := s.now()
	s.thoughts[idx].Status = domain.StatusCompleted
	s.thoughts[idx].CompletedAt = &now
	s.mu.Unlock()

	s.save(ctx)
	logging.Logger.Info("Thought completed", "id", id)
}

// Reopen reverts a completed thought to its previous actionable status,
// clearing the completion timestamp. Used by undo.
func (s *ThoughtService) Reopen(ctx context.Context, id string, previous domain.ThoughtStatus) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.thoughts[idx].Status = previous
	s.thoughts[idx].CompletedAt = nil
	s.mu.Unlock()

	s.save(ctx)
}

// Remove deletes the thought and returns it for undo capture. The second
// return is false when the id is unknown.
func (s *ThoughtService) Remove(ctx context.Context, id string) (domain.Thought, bool) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Thought{}, false
	}
	removed := s.thoughts[idx]
	s.thoughts = append(s.thoughts[:idx], s.thoughts[idx+1:]...)
	s.mu.Unlock()

	s.save(ctx)
	logging.Logger.Info("Thought released", "id", id)
	return removed, true
}

// BulkRemoveByStatus removes every thought with the given status in one
// atomic mutation and returns the removed set for undo capture.
func (s *ThoughtService) BulkRemoveByStatus(ctx context.Context, status domain.ThoughtStatus) []domain.Thought {
	s.mu.Lock()
	var removed []domain.Thought
	kept := s.thoughts[:0]
	for _, t := range s.thoughts {
		if t.Status == status {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	s.thoughts = kept
	s.mu.Unlock()

	if len(removed) > 0 {
		s.save(ctx)
		logging.Logger.Info("Bulk removal", "status", status, "count", len(removed))
	}
	return removed
}

// Restore reinserts a previously removed thought with all original field
// values, including its id. Used by undo.
func (s *ThoughtService) Restore(ctx context.Context, thought domain.Thought) {
	s.mu.Lock()
	if s.indexLocked(thought.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.thoughts = append(s.thoughts, thought)
	s.mu.Unlock()

	s.save(ctx)
}

// Replace swaps the thought with the given id back to a captured
// pre-mutation value. Used by undo.
func (s *ThoughtService) Replace(ctx context.Context, thought domain.Thought) {
	s.mu.Lock()
	idx := s.indexLocked(thought.ID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.thoughts[idx] = thought
	s.mu.Unlock()

	s.save(ctx)
}

// RestoreAll reinserts a removed set (bulk-removal undo).
func (s *ThoughtService) RestoreAll(ctx context.Context, thoughts []domain.Thought) {
	s.mu.Lock()
	for _, t := range thoughts {
		if s.indexLocked(t.ID) >= 0 {
			continue
		}
		s.thoughts = append(s.thoughts, t)
	}
	s.mu.Unlock()

	s.save(ctx)
}

// ToggleSubTask flips the completion state of one sub-task. Sub-tasks are
// independently mutable and never affect parent status.
func (s *ThoughtService) ToggleSubTask(ctx context.Context, thoughtID, subTaskID string) {
	s.mu.Lock()
	idx := s.indexLocked(thoughtID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	for i := range s.thoughts[idx].SubTasks {
		if s.thoughts[idx].SubTasks[i].ID == subTaskID {
			s.thoughts[idx].SubTasks[i].Completed = !s.thoughts[idx].SubTasks[i].Completed
			break
		}
	}
	s.mu.Unlock()

	s.save(ctx)
}

// indexLocked returns the position of id, or -1. Caller holds the lock.
func (s *ThoughtService) indexLocked(id string) int {
	for i, t := range s.thoughts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked deep-copies the collection. Caller holds the lock.
func (s *ThoughtService) snapshotLocked() []domain.Thought {
	out := make([]domain.Thought, len(s.thoughts))
	for i, t := range s.thoughts {
		out[i] = t.Clone()
	}
	return out
}

// save persists the current collection. Persistence failures never
// propagate: they are logged and the in-memory state stays authoritative.
func (s *ThoughtService) save(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		logging.Logger.Error("Failed to persist thoughts", "error", err, "count", len(snapshot))
	}
}
