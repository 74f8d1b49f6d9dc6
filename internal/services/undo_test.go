package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRoundTrip(t *testing.T) {
	u := NewUndoCoordinator(time.Minute)
	restored := 0
	u.Record("Thought released", func() { restored++ })

	assert.True(t, u.Active())
	assert.Equal(t, "Thought released", u.Message())

	require.True(t, u.Undo())
	assert.Equal(t, 1, restored)
	assert.False(t, u.Active())
	assert.Empty(t, u.Message())
}

func TestUndoRunsAtMostOnce(t *testing.T) {
	u := NewUndoCoordinator(time.Minute)
	restored := 0
	u.Record("once", func() { restored++ })

	require.True(t, u.Undo())
	assert.False(t, u.Undo())
	assert.False(t, u.Undo())
	assert.Equal(t, 1, restored)
}

func TestUndoWithoutRecord(t *testing.T) {
	u := NewUndoCoordinator(time.Minute)
	assert.False(t, u.Undo())
}

func TestRecordReplacesAndFinalizesPrevious(t *testing.T) {
	u := NewUndoCoordinator(time.Minute)
	var order []string
	u.Record("first", func() { order = append(order, "first") })
	u.Record("second", func() { order = append(order, "second") })

	assert.Equal(t, "second", u.Message())
	require.True(t, u.Undo())
	assert.Equal(t, []string{"second"}, order, "only the latest record restores")
	assert.False(t, u.Undo())
}

func TestDismissDropsWithoutRestoring(t *testing.T) {
	u := NewUndoCoordinator(time.Minute)
	restored := 0
	u.Record("dropped", func() { restored++ })

	u.Dismiss()

	assert.False(t, u.Active())
	assert.False(t, u.Undo())
	assert.Equal(t, 0, restored)
}

func TestRecordExpiresAfterWindow(t *testing.T) {
	u := NewUndoCoordinator(20 * time.Millisecond)
	u.Record("fleeting", func() {})

	assert.True(t, u.Active())

	assert.Eventually(t, func() bool { return !u.Active() },
		time.Second, 5*time.Millisecond)
	assert.False(t, u.Undo())
}

func TestNewRecordOutlivesOldTimer(t *testing.T) {
	u := NewUndoCoordinator(30 * time.Millisecond)
	u.Record("old", func() {})
	time.Sleep(20 * time.Millisecond)

	// Replacing just before the old timer fires must not expire the new record
	u.Record("new", func() {})
	time.Sleep(15 * time.Millisecond)

	assert.True(t, u.Active())
	assert.Equal(t, "new", u.Message())
}
