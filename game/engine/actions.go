package engine

import (
	"github.com/zyedidia/generic/mapset"
)

// WillingMove moves every object of the target one cell, as a unit
type WillingMove struct {
	Dir Direction
}

// Name implements Action
func (a WillingMove) Name() string { return "willing_move(" + a.Dir.String() + ")" }

// Apply implements Action
func (a WillingMove) Apply(w *World, target Target) (ActionStatus, *Applied) {
	if res := CanMove(w, target, a.Dir); !res.OK() {
		return Failed(res), nil
	}
	moved := w.MoveTarget(target, a.Dir)
	return finishMove(w, a, moved, nil)
}

// Undo implements Action
func (a WillingMove) Undo(w *World, applied *Applied) {
	undoMove(w, applied, a.Dir)
}

// Push moves the target and the line of pushable objects in front of it
type Push struct {
	Dir Direction
}

// Name implements Action
func (a Push) Name() string { return "push(" + a.Dir.String() + ")" }

// Apply implements Action
func (a Push) Apply(w *World, target Target) (ActionStatus, *Applied) {
	members := target.FittingObjects(w)
	extended := target.With(pushChain(w, members, a.Dir)...)

	if res := CanMove(w, extended, a.Dir); !res.OK() {
		return Failed(res), nil
	}
	moved := w.MoveTarget(extended, a.Dir)

	var followUps []TargetedAction
	for _, id := range members {
		pos := w.entities[id].Pos
		if _, ok := w.Collectible(pos); ok {
			followUps = append(followUps, TargetedAction{
				Target: ExactTargets(ExactCollectible(pos)),
				Action: Collect{},
			})
		}
	}
	return finishMove(w, a, moved, followUps)
}

// Undo implements Action
func (a Push) Undo(w *World, applied *Applied) {
	undoMove(w, applied, a.Dir)
}

// pushChain walks ahead of every member and collects the contiguous
// pushable objects. Members inside the line are skipped over; the first
// non-pushable object ends it.
func pushChain(w *World, members []EntityID, dir Direction) []ExactTarget {
	isMember := mapset.New[EntityID]()
	for _, id := range members {
		isMember.Put(id)
	}
	added := mapset.New[EntityID]()

	var chain []ExactTarget
	for _, id := range members {
		pos := w.entities[id].Pos.Step(dir)
		for {
			obj, ok := w.Object(pos)
			if !ok {
				break
			}
			if !isMember.Has(obj) {
				if !w.pushable.Has(obj) {
					break
				}
				if !added.Has(obj) {
					added.Put(obj)
					chain = append(chain, ExactObject(pos))
				}
			}
			pos = pos.Step(dir)
		}
	}
	return chain
}

// MoveWithoutPush moves each member on its own when it can, one after the
// other in id order. Members blocked by anything stay where they are.
type MoveWithoutPush struct {
	Dir Direction
}

// Name implements Action
func (a MoveWithoutPush) Name() string { return "move_without_push(" + a.Dir.String() + ")" }

// Apply implements Action
func (a MoveWithoutPush) Apply(w *World, target Target) (ActionStatus, *Applied) {
	var (
		moved []EntityID
		last  CanMoveResult
	)
	for _, id := range target.FittingObjects(w) {
		m := CanMoveEntity(w, id, a.Dir)
		if m.Check != Can {
			last.addFailure(w, "move_without_push", id, m)
			continue
		}
		w.translate(id, a.Dir)
		moved = append(moved, id)
	}
	if len(moved) == 0 {
		return Failed(last), nil
	}
	return finishMove(w, a, moved, nil)
}

// Undo implements Action. Members moved one at a time, so they go back one
// at a time in reverse order.
func (a MoveWithoutPush) Undo(w *World, applied *Applied) {
	back := a.Dir.Opposite()
	for i := len(applied.Entities) - 1; i >= 0; i-- {
		w.translate(applied.Entities[i], back)
	}
	if applied.Duration > 0 {
		w.stamp(applied.Entities, a, PhaseUndoing)
	}
}

// Collect destroys every collectible the target matches
type Collect struct{}

// Name implements Action
func (Collect) Name() string { return "collect" }

// Apply implements Action
func (c Collect) Apply(w *World, target Target) (ActionStatus, *Applied) {
	ids := target.FittingCollectibles(w)
	if len(ids) == 0 {
		return Failed(CanMoveResult{}), nil
	}
	applied := &Applied{Action: c, Entities: ids}
	for _, id := range ids {
		applied.Changes = append(applied.Changes, Destroy{ID: id}.apply(w))
	}
	return InstantlyMade(), applied
}

// Undo implements Action
func (Collect) Undo(w *World, applied *Applied) {
	for i := len(applied.Changes) - 1; i >= 0; i-- {
		applied.Changes[i].revert(w)
	}
}
