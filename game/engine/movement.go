package engine

import (
	"github.com/zyedidia/generic/mapset"
)

// Translate moves a single object one cell in dir. The source slot must hold
// the object and the destination must be free, otherwise it panics.
func (w *World) Translate(id EntityID, dir Direction) {
	w.translate(id, dir)
}

// MoveTarget translates every object of the target one cell in dir.
// CanMove must have returned OK for the same target and direction.
func (w *World) MoveTarget(target Target, dir Direction) []EntityID {
	return w.MoveEntities(target.FittingObjects(w), dir)
}

// MoveEntities translates the objects simultaneously. Each pass moves every
// pending object whose next cell is not held by another pending object, so
// the head of a chain always clears the way for the rest. Returns the moved
// ids in the order they were translated.
func (w *World) MoveEntities(ids []EntityID, dir Direction) []EntityID {
	pending := mapset.New[EntityID]()
	order := make([]EntityID, 0, len(ids))
	for _, id := range ids {
		if !pending.Has(id) {
			pending.Put(id)
			order = append(order, id)
		}
	}

	moved := make([]EntityID, 0, len(order))
	for pending.Size() > 0 {
		progress := false
		for _, id := range order {
			if !pending.Has(id) {
				continue
			}
			next := w.entities[id].Pos.Step(dir)
			if blocker, ok := w.index.Object(next); ok && pending.Has(blocker) {
				continue
			}
			w.translate(id, dir)
			pending.Remove(id)
			moved = append(moved, id)
			progress = true
		}
		if !progress {
			e := w.entities[order[0]]
			violate(&ConsistencyError{Op: "move_target", Kind: e.Kind, Pos: e.Pos, Entity: e.ID})
		}
	}
	return moved
}
