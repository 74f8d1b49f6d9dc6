package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxmind/flux/internal/domain"
)

// fakeRepo is an in-memory ThoughtRepository recording every save.
type fakeRepo struct {
	loadResult []domain.Thought
	loadErr    error
	mu         sync.Mutex
	saveErr    error
	saves      [][]domain.Thought
}

func (r *fakeRepo) Load(ctx context.Context) ([]domain.Thought, error) {
	return r.loadResult, r.loadErr
}

func (r *fakeRepo) Save(ctx context.Context, thoughts []domain.Thought) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, thoughts)
	return r.saveErr
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) lastSave() []domain.Thought {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	return r.saves[len(r.saves)-1]
}

var testNow = time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *fakeRepo) *ThoughtService {
	t.Helper()
	if repo == nil {
		repo = &fakeRepo{}
	}
	svc := NewThoughtServiceWithClock(repo, func() time.Time { return testNow })
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestAddRejectsBlankContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tabs and newlines", "\t\n "},
	}

	svc := newTestService(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), tt.content)
			assert.ErrorIs(t, err, domain.ErrEmptyContent)
		})
	}
	assert.Empty(t, svc.Thoughts())
}

func TestAddCreatesUnsortedThought(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	thought, err := svc.Add(context.Background(), "call the plumber")
	require.NoError(t, err)

	assert.NotEmpty(t, thought.ID)
	assert.Equal(t, "call the plumber", thought.Content)
	assert.Equal(t, domain.StatusUnsorted, thought.Status)
	assert.Equal(t, testNow, thought.CreatedAt)
	assert.Nil(t, thought.Weight)
	assert.Nil(t, thought.DueDate)

	// Mutation was persisted
	require.Len(t, repo.saves, 1)
	assert.Equal(t, thought.ID, repo.lastSave()[0].ID)
}

func TestAddSurvivesSaveFailure(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	svc := newTestService(t, repo)

	thought, err := svc.Add(context.Background(), "still here")
	require.NoError(t, err)

	got, ok := svc.Get(thought.ID)
	require.True(t, ok)
	assert.Equal(t, "still here", got.Content)
}

func TestApplyVerdictUnknownIDIsNoOp(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)
	svc.Add(context.Background(), "existing")
	savesBefore := len(repo.saves)

	svc.ApplyVerdict(context.Background(), "no-such-id", domain.StatusLetMe, VerdictFields{})

	assert.Len(t, repo.saves, savesBefore)
}

func TestApplyVerdictActionableBranch(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "fix the bike")

	w := domain.WeightImportant
	due := testNow.Add(8 * time.Hour)
	svc.ApplyVerdict(context.Background(), thought.ID, domain.StatusLetMe, VerdictFields{
		DueDate:      &due,
		Reframing:    "One bolt at a time",
		StoicQuote:   "Begin.",
		SubTasks:     []domain.SubTask{{ID: "s1", Text: "find the wrench"}},
		TimeEstimate: "1h",
		Weight:       &w,
	})

	got, ok := svc.Get(thought.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusLetMe, got.Status)
	assert.Equal(t, &w, got.Weight)
	assert.Equal(t, &due, got.DueDate)
	assert.Len(t, got.SubTasks, 1)

	// Immutable fields untouched
	assert.Equal(t, thought.ID, got.ID)
	assert.Equal(t, "fix the bike", got.Content)
	assert.Equal(t, thought.CreatedAt, got.CreatedAt)
}

func TestApplyVerdictAcceptedBranchSkipsWeightAndDueDate(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "their opinion of me")

	w := domain.WeightUrgent
	due := testNow.Add(time.Hour)
	svc.ApplyVerdict(context.Background(), thought.ID, domain.StatusLetThem, VerdictFields{
		DueDate:    &due,
		Reframing:  "Not mine to carry",
		StoicQuote: "You have power over your mind.",
		Weight:     &w,
	})

	got, _ := svc.Get(thought.ID)
	assert.Equal(t, domain.StatusLetThem, got.Status)
	assert.Equal(t, "Not mine to carry", got.ReframedContent)
	assert.Nil(t, got.Weight)
	assert.Nil(t, got.DueDate)
	assert.Empty(t, got.SubTasks)
}

func TestApplyVerdictRejectsInvalidTarget(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)
	thought, _ := svc.Add(context.Background(), "thing")
	savesBefore := len(repo.saves)

	svc.ApplyVerdict(context.Background(), thought.ID, domain.StatusUnsorted, VerdictFields{})
	svc.ApplyVerdict(context.Background(), thought.ID, domain.ThoughtStatus("RELEASED"), VerdictFields{})

	got, _ := svc.Get(thought.ID)
	assert.Equal(t, domain.StatusUnsorted, got.Status)
	assert.Len(t, repo.saves, savesBefore)
}

func TestMarkCompleted(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "done deal")
	svc.ApplyVerdict(context.Background(), thought.ID, domain.StatusLetMe, VerdictFields{})

	svc.MarkCompleted(context.Background(), thought.ID)

	got, _ := svc.Get(thought.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, testNow, *got.CompletedAt)
}

func TestMarkCompletedTwiceKeepsFirstTimestamp(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)
	thought, _ := svc.Add(context.Background(), "once only")
	svc.MarkCompleted(context.Background(), thought.ID)
	savesBefore := len(repo.saves)

	svc.MarkCompleted(context.Background(), thought.ID)

	assert.Len(t, repo.saves, savesBefore, "second completion should not persist")
}

func TestRemoveAndRestoreRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "on second thought")

	removed, ok := svc.Remove(context.Background(), thought.ID)
	require.True(t, ok)
	_, stillThere := svc.Get(thought.ID)
	assert.False(t, stillThere)

	svc.Restore(context.Background(), removed)

	got, ok := svc.Get(thought.ID)
	require.True(t, ok)
	assert.Equal(t, thought.ID, got.ID)
	assert.Equal(t, thought.Content, got.Content)
	assert.Equal(t, thought.CreatedAt, got.CreatedAt)
}

func TestRemoveUnknownID(t *testing.T) {
	svc := newTestService(t, nil)
	_, ok := svc.Remove(context.Background(), "missing")
	assert.False(t, ok)
}

func TestBulkRemoveByStatusIsAtomic(t *testing.T) {
	svc := newTestService(t, nil)
	a, _ := svc.Add(context.Background(), "a")
	b, _ := svc.Add(context.Background(), "b")
	c, _ := svc.Add(context.Background(), "c")
	svc.ApplyVerdict(context.Background(), b.ID, domain.StatusLetThem, VerdictFields{})

	removed := svc.BulkRemoveByStatus(context.Background(), domain.StatusUnsorted)

	require.Len(t, removed, 2)
	assert.Equal(t, a.ID, removed[0].ID)
	assert.Equal(t, c.ID, removed[1].ID)
	assert.Equal(t, 1, len(svc.Thoughts()))

	svc.RestoreAll(context.Background(), removed)
	assert.Equal(t, 3, len(svc.Thoughts()))
}

func TestToggleSubTaskDoesNotAffectParent(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "big thing")
	svc.ApplyVerdict(context.Background(), thought.ID, domain.StatusLetMe, VerdictFields{
		SubTasks: []domain.SubTask{{ID: "s1", Text: "small thing"}},
	})

	svc.ToggleSubTask(context.Background(), thought.ID, "s1")
	got, _ := svc.Get(thought.ID)
	assert.True(t, got.SubTasks[0].Completed)
	assert.Equal(t, domain.StatusLetMe, got.Status)

	svc.ToggleSubTask(context.Background(), thought.ID, "s1")
	got, _ = svc.Get(thought.ID)
	assert.False(t, got.SubTasks[0].Completed)
}

func TestCounts(t *testing.T) {
	svc := newTestService(t, nil)
	a, _ := svc.Add(context.Background(), "a")
	b, _ := svc.Add(context.Background(), "b")
	svc.Add(context.Background(), "c")
	svc.ApplyVerdict(context.Background(), a.ID, domain.StatusLetMe, VerdictFields{})
	svc.ApplyVerdict(context.Background(), b.ID, domain.StatusLetThem, VerdictFields{})

	counts := svc.Counts()
	assert.Equal(t, 1, counts.Action)
	assert.Equal(t, 1, counts.Stillness)
	assert.Equal(t, 1, counts.Unsorted)
}

func TestLoadPrunesExpiredCompleted(t *testing.T) {
	old := testNow.Add(-48 * time.Hour)
	recent := testNow.Add(-time.Hour)
	repo := &fakeRepo{loadResult: []domain.Thought{
		{ID: "keep", Status: domain.StatusCompleted, CompletedAt: &recent},
		{ID: "drop", Status: domain.StatusCompleted, CompletedAt: &old},
	}}

	svc := newTestService(t, repo)

	_, kept := svc.Get("keep")
	_, dropped := svc.Get("drop")
	assert.True(t, kept)
	assert.False(t, dropped)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	svc := newTestService(t, nil)
	svc.Seed(context.Background(), []string{"one", "two"})
	assert.Equal(t, 2, len(svc.Thoughts()))

	svc.Seed(context.Background(), []string{"three"})
	assert.Equal(t, 2, len(svc.Thoughts()))
}

func TestThoughtsReturnsSnapshot(t *testing.T) {
	svc := newTestService(t, nil)
	thought, _ := svc.Add(context.Background(), "original")

	snapshot := svc.Thoughts()
	snapshot[0].Content = "mutated"

	got, _ := svc.Get(thought.ID)
	assert.Equal(t, "original", got.Content)
}
