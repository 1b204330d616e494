package engine

import "fmt"

// SignalKind enumerates the abstract inputs
type SignalKind uint8

const (
	SignalMove SignalKind = iota
)

// Signal is an abstract move intent from the input layer
type Signal struct {
	Kind SignalKind `json:"kind"`
	Dir  Direction  `json:"direction"`
}

// MoveSignal builds a directional move intent
func MoveSignal(d Direction) Signal {
	return Signal{Kind: SignalMove, Dir: d}
}

func (s Signal) String() string {
	if s.Kind == SignalMove {
		return "move(" + s.Dir.String() + ")"
	}
	return fmt.Sprintf("signal(%d)", s.Kind)
}

// SignalQueue is a FIFO of pending signals
type SignalQueue struct {
	items []Signal
}

// Push appends a signal
func (q *SignalQueue) Push(s Signal) {
	q.items = append(q.items, s)
}

// Pop removes the oldest signal
func (q *SignalQueue) Pop() (Signal, bool) {
	if len(q.items) == 0 {
		return Signal{}, false
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s, true
}

// Len returns the number of pending signals
func (q *SignalQueue) Len() int {
	return len(q.items)
}

// Clear drops every pending signal
func (q *SignalQueue) Clear() {
	q.items = nil
}

// BatchMode tracks whether the running batch made progress
type BatchMode uint8

const (
	DontMake BatchMode = iota
	Make
	ProcessingStep
)

// ActionQueue is the FIFO of targeted actions of the running batch
type ActionQueue struct {
	actions []TargetedAction
	mode    BatchMode
}

// Extend appends actions to the back of the queue
func (q *ActionQueue) Extend(actions ...TargetedAction) {
	q.actions = append(q.actions, actions...)
}

// Pop removes the front action
func (q *ActionQueue) Pop() (TargetedAction, bool) {
	if len(q.actions) == 0 {
		return TargetedAction{}, false
	}
	ta := q.actions[0]
	q.actions = q.actions[1:]
	return ta, true
}

// Len returns the number of queued actions
func (q *ActionQueue) Len() int {
	return len(q.actions)
}

// Mode returns the progress flag of the running batch
func (q *ActionQueue) Mode() BatchMode {
	return q.mode
}

func (q *ActionQueue) markProgress() {
	if q.mode == DontMake {
		q.mode = Make
	}
}

// Reset clears the queue and sets the batch mode
func (q *ActionQueue) Reset(mode BatchMode) {
	q.actions = nil
	q.mode = mode
}
