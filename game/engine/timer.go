package engine

import "time"

// ExecutionTimer holds the single in-flight duration of the loop
type ExecutionTimer struct {
	remaining time.Duration
	active    bool
}

// Start blocks the loop for d
func (t *ExecutionTimer) Start(d time.Duration) {
	if d <= 0 {
		return
	}
	t.remaining = d
	t.active = true
}

// Tick advances the timer and reports whether it elapsed on this tick
func (t *ExecutionTimer) Tick(delta time.Duration) bool {
	if !t.active {
		return false
	}
	t.remaining -= delta
	if t.remaining > 0 {
		return false
	}
	t.Clear()
	return true
}

// Executing reports whether an action is still in motion
func (t *ExecutionTimer) Executing() bool {
	return t.active
}

// Remaining returns the time left, zero when idle
func (t *ExecutionTimer) Remaining() time.Duration {
	if !t.active {
		return 0
	}
	return t.remaining
}

// Clear stops the timer
func (t *ExecutionTimer) Clear() {
	t.remaining = 0
	t.active = false
}
