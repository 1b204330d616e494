package engine

import (
	"fmt"
	"time"
)

// StateChange is a low-level mutation that yields its own undo entry
type StateChange interface {
	apply(w *World) UndoEntry
}

// Spawn creates a new entity
type Spawn struct {
	Spec EntitySpec
}

func (s Spawn) apply(w *World) UndoEntry {
	return spawnUndo{id: w.create(s.Spec)}
}

type spawnUndo struct {
	id EntityID
}

func (u spawnUndo) revert(w *World) time.Duration {
	w.kill(u.id)
	return 0
}

func (u spawnUndo) Describe() string { return fmt.Sprintf("spawn #%d", u.id) }

// Destroy removes a live entity. Its id and components survive so the
// undo revives the very same entity.
type Destroy struct {
	ID EntityID
}

func (d Destroy) apply(w *World) UndoEntry {
	w.kill(d.ID)
	return d
}

func (d Destroy) revert(w *World) time.Duration {
	w.revive(d.ID)
	return 0
}

// Describe names the entry for history views
func (d Destroy) Describe() string { return fmt.Sprintf("destroy #%d", d.ID) }

// Swap exchanges the objects at two cells. It is its own inverse.
type Swap struct {
	A, B Position
}

func (s Swap) apply(w *World) UndoEntry {
	w.swapObjects(s.A, s.B)
	return s
}

func (s Swap) revert(w *World) time.Duration {
	w.swapObjects(s.A, s.B)
	return 0
}

// Describe names the entry for history views
func (s Swap) Describe() string { return fmt.Sprintf("swap %s %s", s.A, s.B) }

// Commit applies a state change and records it on the undo stack
func (w *World) Commit(change StateChange) UndoEntry {
	entry := change.apply(w)
	w.undo.Push(entry)
	return entry
}

// SpawnEntity creates an entity and records the spawn
func (w *World) SpawnEntity(spec EntitySpec) EntityID {
	entry := w.Commit(Spawn{Spec: spec}).(spawnUndo)
	return entry.id
}

// DestroyEntity removes a live entity and records the destruction
func (w *World) DestroyEntity(id EntityID) {
	w.Commit(Destroy{ID: id})
}

// SwapObjects exchanges the objects at a and b and records the swap
func (w *World) SwapObjects(a, b Position) {
	w.Commit(Swap{A: a, B: b})
}
