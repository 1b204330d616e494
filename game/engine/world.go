package engine

import (
	"sort"
	"time"

	"github.com/zyedidia/generic/mapset"
)

// Entity is an arena slot. Position is owned by the world and mirrored in the
// spatial index.
type Entity struct {
	ID        EntityID
	Kind      Kind
	Pos       Position
	Alignment WallAlignment
	Alive     bool
}

// View is the read-only world surface handed to reactions
type View interface {
	Entity(id EntityID) (Entity, bool)
	Floor(pos Position) (EntityID, bool)
	Object(pos Position) (EntityID, bool)
	Collectible(pos Position) (EntityID, bool)
	Wall(pos Position, dir Direction) (EntityID, bool)
	GroupOf(id EntityID) Group
	Caps(id EntityID) ObjectCaps
	IsUnwalkable(id EntityID) bool
	IsAlwaysPassable(id EntityID) bool
	Live(kind Kind) []EntityID
}

// World holds the entity arena, sparse component maps, the spatial index
// and the undo stack of one level session.
type World struct {
	entities []Entity
	index    *SpatialIndex

	colors     map[EntityID]Color
	movement   map[EntityID]time.Duration
	performing map[EntityID]Performing

	needsFloor mapset.Set[EntityID]
	ghosts     mapset.Set[EntityID]
	pushable   mapset.Set[EntityID]
	unwalkable mapset.Set[EntityID]
	passable   mapset.Set[EntityID]

	undo *UndoStack
}

// NewWorld creates an empty world
func NewWorld() *World {
	return &World{
		index:      NewSpatialIndex(),
		colors:     make(map[EntityID]Color),
		movement:   make(map[EntityID]time.Duration),
		performing: make(map[EntityID]Performing),
		needsFloor: mapset.New[EntityID](),
		ghosts:     mapset.New[EntityID](),
		pushable:   mapset.New[EntityID](),
		unwalkable: mapset.New[EntityID](),
		passable:   mapset.New[EntityID](),
		undo:       NewUndoStack(),
	}
}

// Index exposes the spatial index
func (w *World) Index() *SpatialIndex {
	return w.index
}

// UndoStack returns the undo stack
func (w *World) UndoStack() *UndoStack {
	return w.undo
}

// create allocates a new entity, attaches its components and registers it
// with the index. It does not record an undo entry.
func (w *World) create(spec EntitySpec) EntityID {
	id := EntityID(len(w.entities))
	e := Entity{ID: id, Kind: spec.Kind, Pos: spec.Pos, Alive: true}

	switch spec.Kind {
	case KindWall:
		e.Alignment = spec.Alignment
		if spec.AlwaysPassable {
			w.passable.Put(id)
		}
	case KindFloor:
		if spec.Unwalkable {
			w.unwalkable.Put(id)
		}
	case KindObject:
		if spec.Caps.NeedsWalkableFloor {
			w.needsFloor.Put(id)
		}
		if spec.Caps.PassesThroughWalls {
			w.ghosts.Put(id)
		}
		if spec.Caps.Pushable {
			w.pushable.Put(id)
		}
	}
	if spec.Color != ColorNone {
		w.colors[id] = spec.Color
	}
	if spec.Movement > 0 {
		w.movement[id] = spec.Movement
	}

	w.index.Insert(e)
	w.entities = append(w.entities, e)
	return id
}

// kill removes a live entity from the index. Components are kept so revive
// restores the entity exactly.
func (w *World) kill(id EntityID) {
	e := w.mustEntity(id)
	if !e.Alive {
		violate(&ConsistencyError{Op: "destroy", Kind: e.Kind, Pos: e.Pos, Entity: id})
	}
	w.index.Remove(*e)
	e.Alive = false
	delete(w.performing, id)
}

func (w *World) revive(id EntityID) {
	e := w.mustEntity(id)
	if e.Alive {
		violate(&ConsistencyError{Op: "revive", Kind: e.Kind, Pos: e.Pos, Entity: id})
	}
	w.index.Insert(*e)
	e.Alive = true
}

func (w *World) mustEntity(id EntityID) *Entity {
	if int(id) >= len(w.entities) {
		violate(&ConsistencyError{Op: "lookup", Entity: id})
	}
	return &w.entities[id]
}

// Entity returns a copy of the entity
func (w *World) Entity(id EntityID) (Entity, bool) {
	if int(id) >= len(w.entities) {
		return Entity{}, false
	}
	return w.entities[id], true
}

// Floor returns the floor at pos
func (w *World) Floor(pos Position) (EntityID, bool) { return w.index.Floor(pos) }

// Object returns the object at pos
func (w *World) Object(pos Position) (EntityID, bool) { return w.index.Object(pos) }

// Collectible returns the collectible at pos
func (w *World) Collectible(pos Position) (EntityID, bool) { return w.index.Collectible(pos) }

// Wall returns the wall on the edge of pos facing dir
func (w *World) Wall(pos Position, dir Direction) (EntityID, bool) { return w.index.Wall(pos, dir) }

// GroupOf returns the group of an entity, falling back to the ungrouped
// group keyed by the entity itself.
func (w *World) GroupOf(id EntityID) Group {
	if c, ok := w.colors[id]; ok {
		return Group{Color: c}
	}
	return Group{Color: ColorNone, Entity: id}
}

// Caps returns the object capabilities of an entity
func (w *World) Caps(id EntityID) ObjectCaps {
	return ObjectCaps{
		NeedsWalkableFloor: w.needsFloor.Has(id),
		PassesThroughWalls: w.ghosts.Has(id),
		Pushable:           w.pushable.Has(id),
	}
}

// IsUnwalkable reports whether a floor blocks walkers
func (w *World) IsUnwalkable(id EntityID) bool { return w.unwalkable.Has(id) }

// IsAlwaysPassable reports whether a wall never blocks
func (w *World) IsAlwaysPassable(id EntityID) bool { return w.passable.Has(id) }

// Movement returns the configured movement duration of an entity
func (w *World) Movement(id EntityID) time.Duration { return w.movement[id] }

// PerformingOf returns the in-flight action stamp of an entity
func (w *World) PerformingOf(id EntityID) (Performing, bool) {
	p, ok := w.performing[id]
	return p, ok
}

func (w *World) stamp(ids []EntityID, action Action, phase Phase) {
	for _, id := range ids {
		w.performing[id] = Performing{Action: action, Phase: phase}
	}
}

// ClearPerforming drops every in-flight stamp
func (w *World) ClearPerforming() {
	for id := range w.performing {
		delete(w.performing, id)
	}
}

// Live returns live entities of a kind in id order
func (w *World) Live(kind Kind) []EntityID {
	var ids []EntityID
	for _, e := range w.entities {
		if e.Alive && e.Kind == kind {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Entities returns a copy of every live entity in id order
func (w *World) Entities() []Entity {
	out := make([]Entity, 0, len(w.entities))
	for _, e := range w.entities {
		if e.Alive {
			out = append(out, e)
		}
	}
	return out
}

// translate moves one object a single cell. The old slot must hold the
// object and the new slot must be empty.
func (w *World) translate(id EntityID, dir Direction) {
	e := w.mustEntity(id)
	if e.Kind != KindObject || !e.Alive {
		violate(&ConsistencyError{Op: "translate", Kind: e.Kind, Pos: e.Pos, Entity: id, Err: ErrNotAnObject})
	}
	w.index.Remove(*e)
	e.Pos = e.Pos.Step(dir)
	w.index.Insert(*e)
}

// swapObjects exchanges the objects at a and b, keeping entity positions in
// step with the index.
func (w *World) swapObjects(a, b Position) {
	idA, okA := w.index.Object(a)
	idB, okB := w.index.Object(b)
	w.index.SwapObjects(a, b)
	if okA {
		w.entities[idA].Pos = b
	}
	if okB {
		w.entities[idB].Pos = a
	}
}

func sortIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
