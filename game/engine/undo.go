package engine

import "time"

// UndoEntry is a committed change that knows how to reverse itself
type UndoEntry interface {
	revert(w *World) time.Duration
	Describe() string
}

// nextBatch separates the entries of consecutive turns
type nextBatch struct{}

func (nextBatch) revert(*World) time.Duration { return 0 }
func (nextBatch) Describe() string           { return "next_batch" }

// UndoStack holds committed entries in commit order
type UndoStack struct {
	entries []UndoEntry
	depth   int
}

// NewUndoStack creates an empty stack
func NewUndoStack() *UndoStack {
	return &UndoStack{}
}

// Push records a committed entry
func (s *UndoStack) Push(e UndoEntry) {
	if _, ok := e.(nextBatch); ok {
		s.MarkBatch()
		return
	}
	s.entries = append(s.entries, e)
	s.depth++
}

// MarkBatch starts a new turn. Empty turns collapse into one marker.
func (s *UndoStack) MarkBatch() {
	if len(s.entries) == 0 {
		return
	}
	if _, ok := s.entries[len(s.entries)-1].(nextBatch); ok {
		return
	}
	s.entries = append(s.entries, nextBatch{})
}

// Depth counts the entries that can still be undone
func (s *UndoStack) Depth() int {
	return s.depth
}

// Clear drops all entries
func (s *UndoStack) Clear() {
	s.entries = nil
	s.depth = 0
}

// Describe lists the entries from oldest to newest, markers included
func (s *UndoStack) Describe() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Describe()
	}
	return out
}

func (s *UndoStack) pop() (UndoEntry, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	if _, ok := e.(nextBatch); !ok {
		s.depth--
	}
	return e, true
}

func (s *UndoStack) dropMarkers() {
	for len(s.entries) > 0 {
		if _, ok := s.entries[len(s.entries)-1].(nextBatch); !ok {
			return
		}
		s.entries = s.entries[:len(s.entries)-1]
	}
}

// Undo reverses the most recent entry and returns how long the reversal
// animates.
func (w *World) Undo() (time.Duration, error) {
	w.undo.dropMarkers()
	e, ok := w.undo.pop()
	if !ok {
		return 0, ErrNothingToUndo
	}
	return e.revert(w), nil
}

// UndoTurn reverses every entry back to the start of the latest turn
func (w *World) UndoTurn() (time.Duration, error) {
	w.undo.dropMarkers()
	if w.undo.depth == 0 {
		return 0, ErrNothingToUndo
	}
	var longest time.Duration
	for {
		e, ok := w.undo.pop()
		if !ok {
			break
		}
		if _, marker := e.(nextBatch); marker {
			break
		}
		longest = max(longest, e.revert(w))
	}
	return longest, nil
}
