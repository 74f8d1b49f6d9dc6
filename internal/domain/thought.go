package domain

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ThoughtStatus represents the triage disposition of a thought.
// Released thoughts are removed from the registry entirely and never
// carry a stored status value.
type ThoughtStatus string

const (
	StatusUnsorted  ThoughtStatus = "UNSORTED"
	StatusLetThem   ThoughtStatus = "LET_THEM"
	StatusLetMe     ThoughtStatus = "LET_ME"
	StatusCompleted ThoughtStatus = "COMPLETED"
)

// Valid reports whether s is one of the four stored status values.
func (s ThoughtStatus) Valid() bool {
	switch s {
	case StatusUnsorted, StatusLetThem, StatusLetMe, StatusCompleted:
		return true
	}
	return false
}

// Weight is the priority classification assigned on the actionable branch.
type Weight string

const (
	WeightUrgent    Weight = "URGENT"
	WeightImportant Weight = "IMPORTANT"
	WeightCasual    Weight = "CASUAL"
)

// SubTask is an atomic step generated for a committed thought.
// Sub-tasks are independently mutable and never affect parent status.
type SubTask struct {
	Completed bool
	ID        string
	Text      string
}

// Thought is a unit of user-captured text subject to triage (domain entity).
// ID, Content, and CreatedAt are immutable after creation.
type Thought struct {
	CompletedAt     *time.Time
	Content         string
	CreatedAt       time.Time
	DueDate         *time.Time
	ID              string
	ReframedContent string
	Status          ThoughtStatus
	StoicQuote      string
	SubTasks        []SubTask
	SuggestedSlot   *ClockTime
	TimeEstimate    string
	Weight          *Weight
}

// CompletedRetention is how long completed thoughts survive before being
// pruned on the next load.
const CompletedRetention = 24 * time.Hour

// Expired reports whether the thought should be pruned at load time.
func (t Thought) Expired(now time.Time) bool {
	return t.Status == StatusCompleted &&
		t.CompletedAt != nil &&
		now.Sub(*t.CompletedAt) >= CompletedRetention
}

// PruneCompleted filters out completed thoughts older than the retention
// window. It is a pure function of its inputs so repeated application with
// the same clock yields the same result.
func PruneCompleted(thoughts []Thought, now time.Time) []Thought {
	kept := make([]Thought, 0, len(thoughts))
	for _, t := range thoughts {
		if t.Expired(now) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Clone returns a deep copy of the thought, so undo records can capture
// pre-mutation state without aliasing sub-task slices.
func (t Thought) Clone() Thought {
	c := t
	if t.Weight != nil {
		w := *t.Weight
		c.Weight = &w
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.SuggestedSlot != nil {
		s := *t.SuggestedSlot
		c.SuggestedSlot = &s
	}
	if t.SubTasks != nil {
		c.SubTasks = make([]SubTask, len(t.SubTasks))
		copy(c.SubTasks, t.SubTasks)
	}
	return c
}

// idEntropy is shared across concurrent SSH sessions, so it needs the
// locked reader.
var idEntropy = &ulid.LockedMonotonicReader{
	MonotonicReader: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
}

// NewThoughtID returns a fresh unique identifier. ULIDs sort by creation
// time, which gives the registry a stable natural order.
func NewThoughtID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), idEntropy).String()
}

// NewSubTaskID returns a fresh identifier for a persisted sub-task.
func NewSubTaskID() string {
	return ulid.MustNew(ulid.Now(), idEntropy).String()
}
