package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThoughtStatusValid(t *testing.T) {
	tests := []struct {
		status ThoughtStatus
		want   bool
	}{
		{StatusUnsorted, true},
		{StatusLetThem, true},
		{StatusLetMe, true},
		{StatusCompleted, true},
		{ThoughtStatus("RELEASED"), false},
		{ThoughtStatus(""), false},
		{ThoughtStatus("let_me"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Valid())
		})
	}
}

func TestPruneCompleted(t *testing.T) {
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	old := now.Add(-25 * time.Hour)
	recent := now.Add(-1 * time.Hour)
	exactly := now.Add(-CompletedRetention)

	thoughts := []Thought{
		{ID: "a", Status: StatusUnsorted},
		{ID: "b", Status: StatusCompleted, CompletedAt: &old},
		{ID: "c", Status: StatusCompleted, CompletedAt: &recent},
		{ID: "d", Status: StatusLetMe},
		{ID: "e", Status: StatusCompleted, CompletedAt: &exactly},
		{ID: "f", Status: StatusCompleted}, // no timestamp, never pruned
	}

	kept := PruneCompleted(thoughts, now)

	ids := make([]string, len(kept))
	for i, th := range kept {
		ids[i] = th.ID
	}
	assert.Equal(t, []string{"a", "c", "d", "f"}, ids)
}

func TestPruneCompletedIsIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)
	thoughts := []Thought{
		{ID: "a", Status: StatusLetThem},
		{ID: "b", Status: StatusCompleted, CompletedAt: &old},
	}

	once := PruneCompleted(thoughts, now)
	twice := PruneCompleted(once, now)
	assert.Equal(t, once, twice)
}

func TestCloneIsDeep(t *testing.T) {
	w := WeightUrgent
	due := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	slot := ClockTime{Hour: 9, Minute: 30}
	original := Thought{
		Content:       "original",
		DueDate:       &due,
		ID:            "t1",
		SubTasks:      []SubTask{{ID: "s1", Text: "step one"}},
		SuggestedSlot: &slot,
		Weight:        &w,
	}

	clone := original.Clone()
	clone.SubTasks[0].Completed = true
	*clone.Weight = WeightCasual
	*clone.DueDate = due.Add(time.Hour)
	clone.SuggestedSlot.Hour = 20

	assert.False(t, original.SubTasks[0].Completed)
	assert.Equal(t, WeightUrgent, *original.Weight)
	assert.Equal(t, due, *original.DueDate)
	assert.Equal(t, 9, original.SuggestedSlot.Hour)
}

func TestNewThoughtIDOrdering(t *testing.T) {
	early := NewThoughtID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := NewThoughtID(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	require.NotEqual(t, early, late)
	assert.Less(t, early, late, "ids should sort by creation time")
}
