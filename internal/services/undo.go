package services

import (
	"sync"
	"time"
)

// DefaultUndoWindow is how long a destructive action stays reversible.
const DefaultUndoWindow = 4 * time.Second

// UndoCoordinator holds at most one pending undo record. Recording a new
// action while one is pending finalizes the previous one: the old record is
// dropped and can no longer be restored.
type UndoCoordinator struct {
	generation int
	message    string
	mu         sync.Mutex
	restore    func()
	timer      *time.Timer
	window     time.Duration
}

// NewUndoCoordinator creates a coordinator with the given expiry window.
// A non-positive window falls back to DefaultUndoWindow.
func NewUndoCoordinator(window time.Duration) *UndoCoordinator {
	if window <= 0 {
		window = DefaultUndoWindow
	}
	return &UndoCoordinator{window: window}
}

// Record replaces any pending record with a new one and restarts the expiry
// timer. The restore function runs at most once, and only through Undo.
func (u *UndoCoordinator) Record(message string, restore func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.timer != nil {
		u.timer.Stop()
	}
	u.generation++
	gen := u.generation
	u.message = message
	u.restore = restore
	u.timer = time.AfterFunc(u.window, func() {
		u.expire(gen)
	})
}

// Undo applies the pending record's restore exactly once and clears it.
// Returns false when no record is pending.
func (u *UndoCoordinator) Undo() bool {
	u.mu.Lock()
	restore := u.restore
	u.clearLocked()
	u.mu.Unlock()

	if restore == nil {
		return false
	}
	restore()
	return true
}

// Dismiss drops the pending record without restoring.
func (u *UndoCoordinator) Dismiss() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.clearLocked()
}

// Active reports whether an undo is currently available.
func (u *UndoCoordinator) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.restore != nil
}

// Message returns the pending record's toast message, or "".
func (u *UndoCoordinator) Message() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.message
}

// expire clears the record when the timer fires, unless a newer record has
// replaced it in the meantime.
func (u *UndoCoordinator) expire(gen int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if gen != u.generation {
		return
	}
	u.clearLocked()
}

func (u *UndoCoordinator) clearLocked() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.message = ""
	u.restore = nil
}
