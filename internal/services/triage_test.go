package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/ports"
)

// fakeClassifier returns a canned verdict, or an error when failing is set.
// When block is set, Classify waits on it before returning, so tests can
// hold a classification in flight.
type fakeClassifier struct {
	block     chan struct{}
	calls     atomic.Int64
	failing   bool
	fragments []string
	verdict   domain.Verdict
}

func (c *fakeClassifier) Classify(ctx context.Context, content string, lang domain.Language, calendarContext string) (domain.Verdict, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.failing {
		return domain.Verdict{}, errors.New("gateway unreachable")
	}
	return c.verdict, nil
}

func (c *fakeClassifier) Deconstruct(ctx context.Context, content string, lang domain.Language) ([]string, error) {
	if c.failing {
		return nil, errors.New("gateway unreachable")
	}
	return c.fragments, nil
}

func (c *fakeClassifier) Summarize(ctx context.Context, thoughts []domain.Thought, lang domain.Language) string {
	return "Be water."
}

func acceptVerdict() domain.Verdict {
	return domain.Verdict{
		Category:     domain.CategoryAccept,
		InsightQuote: "You have power over your mind.",
		Reframing:    "Their weather, not yours",
	}
}

func actVerdict() domain.Verdict {
	w := domain.WeightImportant
	slot := domain.ClockTime{Hour: 9}
	return domain.Verdict{
		Category:      domain.CategoryAct,
		InsightQuote:  "Begin.",
		SubTasks:      []string{"first step", "second step"},
		SuggestedSlot: &slot,
		TimeEstimate:  "1h",
		Weight:        &w,
	}
}

func newTestTriage(t *testing.T, classifier ports.Classifier) (*TriageService, *ThoughtService, *UndoCoordinator) {
	t.Helper()
	registry := newTestService(t, nil)
	undo := NewUndoCoordinator(time.Minute)
	triage := NewTriageService(registry, classifier, nil, undo, domain.LangEnglish)
	triage.now = func() time.Time { return testNow }
	return triage, registry, undo
}

func startSession(t *testing.T, triage *TriageService, registry *ThoughtService, content string) *SortingSession {
	t.Helper()
	thought, err := registry.Add(context.Background(), content)
	require.NoError(t, err)
	sess, err := triage.StartSession(thought.ID)
	require.NoError(t, err)
	return sess
}

func TestStartSessionUnknownID(t *testing.T) {
	triage, _, _ := newTestTriage(t, &fakeClassifier{})
	_, err := triage.StartSession("missing")
	assert.ErrorIs(t, err, domain.ErrThoughtNotFound)
}

func TestClassifyTransitionsToPresenting(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: acceptVerdict()})
	sess := startSession(t, triage, registry, "their tone in the meeting")

	assert.Equal(t, StateCollectingVerdict, sess.State())
	require.NoError(t, sess.Classify(context.Background()))

	assert.Equal(t, StatePresentingVerdict, sess.State())
	require.NotNil(t, sess.Verdict())
	assert.Equal(t, domain.CategoryAccept, sess.Verdict().Category)
}

func TestClassifyFailureFallsBack(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{failing: true})
	sess := startSession(t, triage, registry, "anything")

	require.NoError(t, sess.Classify(context.Background()))

	assert.Equal(t, StatePresentingVerdict, sess.State())
	want := domain.FallbackVerdict(testNow)
	assert.Equal(t, want, *sess.Verdict())
}

func TestAcceptPath(t *testing.T) {
	triage, registry, undo := newTestTriage(t, &fakeClassifier{verdict: acceptVerdict()})
	sess := startSession(t, triage, registry, "their tone")
	require.NoError(t, sess.Classify(context.Background()))

	require.NoError(t, sess.Accept(context.Background()))

	assert.Equal(t, StateTransitioningOut, sess.State())
	assert.True(t, sess.Closed())

	got, _ := registry.Get(sess.Thought().ID)
	assert.Equal(t, domain.StatusLetThem, got.Status)
	assert.Equal(t, "Their weather, not yours", got.ReframedContent)
	assert.Equal(t, "You have power over your mind.", got.StoicQuote)
	assert.True(t, undo.Active())
}

func TestCommitPath(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "fix the bike")
	require.NoError(t, sess.Classify(context.Background()))

	require.NoError(t, sess.BeginCommit())
	assert.Equal(t, StateConfirmingCommit, sess.State())
	require.NoError(t, sess.ConfirmCommit())
	assert.Equal(t, StateSelectingSlot, sess.State())
	require.NoError(t, sess.SelectSlot(context.Background(), SlotTomorrow))

	got, _ := registry.Get(sess.Thought().ID)
	assert.Equal(t, domain.StatusLetMe, got.Status)
	require.NotNil(t, got.Weight)
	assert.Equal(t, domain.WeightImportant, *got.Weight)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, testNow.AddDate(0, 0, 1).Day(), got.DueDate.Day())
	assert.Equal(t, 9, got.DueDate.Hour())

	// Sub-task records got fresh ids and start unchecked
	require.Len(t, got.SubTasks, 2)
	for _, st := range got.SubTasks {
		assert.NotEmpty(t, st.ID)
		assert.False(t, st.Completed)
	}
	assert.NotEqual(t, got.SubTasks[0].ID, got.SubTasks[1].ID)
}

func TestCommitWithoutWeightDefaultsToCasual(t *testing.T) {
	v := actVerdict()
	v.Weight = nil
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: v})
	sess := startSession(t, triage, registry, "thing")
	require.NoError(t, sess.Classify(context.Background()))
	require.NoError(t, sess.BeginCommit())
	require.NoError(t, sess.ConfirmCommit())
	require.NoError(t, sess.SelectSlot(context.Background(), SlotToday))

	got, _ := registry.Get(sess.Thought().ID)
	require.NotNil(t, got.Weight)
	assert.Equal(t, domain.WeightCasual, *got.Weight)
}

func TestDeclineCommitReturnsToPresenting(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "thing")
	require.NoError(t, sess.Classify(context.Background()))
	require.NoError(t, sess.BeginCommit())

	require.NoError(t, sess.DeclineCommit())

	assert.Equal(t, StatePresentingVerdict, sess.State())
	got, _ := registry.Get(sess.Thought().ID)
	assert.Equal(t, domain.StatusUnsorted, got.Status)
}

func TestReleaseFromPresenting(t *testing.T) {
	triage, registry, undo := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "let it go")
	require.NoError(t, sess.Classify(context.Background()))

	require.NoError(t, sess.Release(context.Background()))

	_, ok := registry.Get(sess.Thought().ID)
	assert.False(t, ok)
	assert.True(t, sess.Closed())
	assert.True(t, undo.Active())

	// Undo restores the released thought
	require.True(t, undo.Undo())
	got, ok := registry.Get(sess.Thought().ID)
	require.True(t, ok)
	assert.Equal(t, "let it go", got.Content)
}

func TestReleaseWhileCollecting(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "impatient")

	require.NoError(t, sess.Release(context.Background()))

	_, ok := registry.Get(sess.Thought().ID)
	assert.False(t, ok)
}

func TestCancelDiscardsInFlightVerdict(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "changed my mind")

	sess.Cancel()
	require.NoError(t, sess.Classify(context.Background()))

	assert.Nil(t, sess.Verdict())
	got, _ := registry.Get(sess.Thought().ID)
	assert.Equal(t, domain.StatusUnsorted, got.Status)
}

func TestCancelRacesInFlightClassification(t *testing.T) {
	// The UI cancels from its own goroutine while classifyCmd is blocked on
	// the gateway and the spinner keeps polling State.
	classifier := &fakeClassifier{verdict: actVerdict(), block: make(chan struct{})}
	triage, registry, _ := newTestTriage(t, classifier)
	sess := startSession(t, triage, registry, "second thoughts")

	done := make(chan error, 1)
	go func() { done <- sess.Classify(context.Background()) }()

	require.Eventually(t, func() bool {
		return classifier.calls.Load() == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, StateCollectingVerdict, sess.State())
	sess.Cancel()
	close(classifier.block)

	require.NoError(t, <-done)
	assert.True(t, sess.Closed())
	assert.Nil(t, sess.Verdict())
	got, _ := registry.Get(sess.Thought().ID)
	assert.Equal(t, domain.StatusUnsorted, got.Status)
}

func TestInvalidTransitions(t *testing.T) {
	triage, registry, _ := newTestTriage(t, &fakeClassifier{verdict: actVerdict()})
	sess := startSession(t, triage, registry, "thing")

	// Nothing but classify, release, and cancel is legal while collecting
	assert.ErrorIs(t, sess.Accept(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, sess.BeginCommit(), ErrInvalidTransition)
	assert.ErrorIs(t, sess.ConfirmCommit(), ErrInvalidTransition)
	assert.ErrorIs(t, sess.SelectSlot(context.Background(), SlotToday), ErrInvalidTransition)

	require.NoError(t, sess.Classify(context.Background()))
	assert.ErrorIs(t, sess.Classify(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, sess.DeclineCommit(), ErrInvalidTransition)

	require.NoError(t, sess.BeginCommit())
	require.NoError(t, sess.ConfirmCommit())
	require.NoError(t, sess.SelectSlot(context.Background(), SlotToday))
	assert.ErrorIs(t, sess.Release(context.Background()), ErrInvalidTransition)
}

func TestResolveSlot(t *testing.T) {
	// Wednesday
	wednesday := time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)
	slot9 := &domain.ClockTime{Hour: 9}
	slot15 := &domain.ClockTime{Hour: 15, Minute: 30}

	tests := []struct {
		name   string
		now    time.Time
		window SlotWindow
		slot   *domain.ClockTime
		want   time.Time
	}{
		{
			name:   "today with future slot",
			now:    wednesday,
			window: SlotToday,
			slot:   slot15,
			want:   time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC),
		},
		{
			name:   "today with past slot rounds up to next full hour",
			now:    wednesday,
			window: SlotToday,
			slot:   slot9,
			want:   time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC),
		},
		{
			name:   "today slot equal to now is corrected forward",
			now:    time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC),
			window: SlotToday,
			slot:   slot9,
			want:   time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "today without slot uses default evening hour",
			now:    wednesday,
			window: SlotToday,
			want:   time.Date(2026, 1, 7, 18, 0, 0, 0, time.UTC),
		},
		{
			name:   "tomorrow",
			now:    wednesday,
			window: SlotTomorrow,
			slot:   slot9,
			want:   time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "weekend from wednesday is saturday",
			now:    wednesday,
			window: SlotWeekend,
			slot:   slot9,
			want:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "weekend from sunday is next saturday",
			now:    time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC),
			window: SlotWeekend,
			slot:   slot9,
			want:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "weekend on saturday stays today",
			now:    time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
			window: SlotWeekend,
			slot:   slot9,
			want:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSlot(tt.now, tt.window, tt.slot)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now), "due date must be in the future")
		})
	}
}

func TestPrefetchVerdictsCachesResults(t *testing.T) {
	classifier := &fakeClassifier{verdict: actVerdict()}
	triage, registry, _ := newTestTriage(t, classifier)
	a, _ := registry.Add(context.Background(), "a")
	b, _ := registry.Add(context.Background(), "b")

	triage.PrefetchVerdicts(context.Background(), []domain.Thought{a, b})
	assert.Equal(t, int64(2), classifier.calls.Load())

	// Cached, so re-prefetching makes no further calls
	triage.PrefetchVerdicts(context.Background(), []domain.Thought{a, b})
	assert.Equal(t, int64(2), classifier.calls.Load())

	// A session for a prefetched thought skips the collecting state
	sess, err := triage.StartSession(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePresentingVerdict, sess.State())
	require.NotNil(t, sess.Verdict())
}

func TestDeconstructFallsBackToOriginal(t *testing.T) {
	triage, _, _ := newTestTriage(t, &fakeClassifier{failing: true})
	got := triage.Deconstruct(context.Background(), "everything at once")
	assert.Equal(t, []string{"everything at once"}, got)
}

func TestDeconstructReturnsFragments(t *testing.T) {
	triage, _, _ := newTestTriage(t, &fakeClassifier{fragments: []string{"one", "two"}})
	got := triage.Deconstruct(context.Background(), "one and two")
	assert.Equal(t, []string{"one", "two"}, got)
}
