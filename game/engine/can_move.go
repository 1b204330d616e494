package engine

// MoveCheck is the outcome of checking a single entity
type MoveCheck uint8

const (
	Can MoveCheck = iota
	NotAnObject
	BumpedIntoWall
	BumpedIntoObject
	NoFloor
	UnwalkableFloor
)

func (c MoveCheck) String() string {
	switch c {
	case Can:
		return "can"
	case NotAnObject:
		return "not_an_object"
	case BumpedIntoWall:
		return "bumped_into_wall"
	case BumpedIntoObject:
		return "bumped_into_object"
	case NoFloor:
		return "no_floor"
	case UnwalkableFloor:
		return "unwalkable_floor"
	}
	return "unknown"
}

// EntityMove is the per-entity feasibility result. Obstacle is the wall,
// object or floor responsible for the failure.
type EntityMove struct {
	Check    MoveCheck
	Obstacle EntityID
}

// CanMoveEntity checks whether a single object can step in dir.
// Walls are checked before objects, objects before floors.
func CanMoveEntity(v View, id EntityID, dir Direction) EntityMove {
	e, ok := v.Entity(id)
	if !ok || !e.Alive || e.Kind != KindObject {
		return EntityMove{Check: NotAnObject}
	}
	caps := v.Caps(id)

	if !caps.PassesThroughWalls {
		if wall, ok := v.Wall(e.Pos, dir); ok && !v.IsAlwaysPassable(wall) {
			return EntityMove{Check: BumpedIntoWall, Obstacle: wall}
		}
	}

	dest := e.Pos.Step(dir)
	if obj, ok := v.Object(dest); ok {
		return EntityMove{Check: BumpedIntoObject, Obstacle: obj}
	}

	if caps.NeedsWalkableFloor {
		floor, ok := v.Floor(dest)
		if !ok {
			return EntityMove{Check: NoFloor}
		}
		if v.IsUnwalkable(floor) {
			return EntityMove{Check: UnwalkableFloor, Obstacle: floor}
		}
	}

	return EntityMove{Check: Can}
}

// CanMoveKind is the aggregate verdict, ordered by precedence
type CanMoveKind uint8

const (
	CanMoveOK CanMoveKind = iota
	CanMoveNoFloor
	CanMoveUnwalkableFloor
	CanMoveBumpedInto
)

func (k CanMoveKind) String() string {
	switch k {
	case CanMoveOK:
		return "can"
	case CanMoveNoFloor:
		return "no_floor"
	case CanMoveUnwalkableFloor:
		return "unwalkable_floor"
	case CanMoveBumpedInto:
		return "bumped_into"
	}
	return "unknown"
}

// Blocker pairs a mover with the wall or object it ran into
type Blocker struct {
	Mover    EntityID
	Obstacle EntityID
	Kind     Kind
}

// CanMoveResult aggregates the per-entity checks of a whole target
type CanMoveResult struct {
	Kind       CanMoveKind
	BumpedInto []Blocker
	// NoFloor lists movers whose destination has no floor
	NoFloor []EntityID
	// Unwalkable lists the blocking floors
	Unwalkable []EntityID
}

// OK reports whether the executor may run
func (r CanMoveResult) OK() bool {
	return r.Kind == CanMoveOK
}

// A bump discards everything gathered so far; floor problems found after a
// bump are ignored.
func (r *CanMoveResult) addBumpedInto(b Blocker) {
	if r.Kind != CanMoveBumpedInto {
		r.Kind = CanMoveBumpedInto
		r.NoFloor = nil
		r.Unwalkable = nil
	}
	r.BumpedInto = append(r.BumpedInto, b)
}

func (r *CanMoveResult) addUnwalkable(floor EntityID) {
	switch r.Kind {
	case CanMoveBumpedInto:
		return
	case CanMoveOK, CanMoveNoFloor:
		r.Kind = CanMoveUnwalkableFloor
	}
	r.Unwalkable = append(r.Unwalkable, floor)
}

func (r *CanMoveResult) addNoFloor(mover EntityID) {
	switch r.Kind {
	case CanMoveBumpedInto:
		return
	case CanMoveOK:
		r.Kind = CanMoveNoFloor
	}
	r.NoFloor = append(r.NoFloor, mover)
}

// CanMove folds the checks of every object the target matches. Running into
// another member of the same target is not a failure since the chain moves
// together.
func CanMove(v View, target Target, dir Direction) CanMoveResult {
	return canMoveMembers(v, target.FittingObjects(v), func(id EntityID) bool {
		return target.Matches(v, id)
	}, dir)
}

// CanMoveIndependently is the check for members that move one at a time:
// it passes as soon as any single member can move.
func CanMoveIndependently(v View, target Target, dir Direction) CanMoveResult {
	var res CanMoveResult
	for _, id := range target.FittingObjects(v) {
		m := CanMoveEntity(v, id, dir)
		if m.Check == Can {
			return CanMoveResult{}
		}
		res.addFailure(v, "can_move_independently", id, m)
	}
	return res
}

// addFailure folds one failed per-entity check into the result
func (r *CanMoveResult) addFailure(v View, op string, id EntityID, m EntityMove) {
	switch m.Check {
	case NotAnObject:
		e, _ := v.Entity(id)
		violate(&ConsistencyError{Op: op, Kind: e.Kind, Pos: e.Pos, Entity: id, Err: ErrNotAnObject})
	case BumpedIntoWall:
		r.addBumpedInto(Blocker{Mover: id, Obstacle: m.Obstacle, Kind: KindWall})
	case BumpedIntoObject:
		r.addBumpedInto(Blocker{Mover: id, Obstacle: m.Obstacle, Kind: KindObject})
	case NoFloor:
		r.addNoFloor(id)
	case UnwalkableFloor:
		r.addUnwalkable(m.Obstacle)
	}
}

func canMoveMembers(v View, members []EntityID, isMember func(EntityID) bool, dir Direction) CanMoveResult {
	var res CanMoveResult
	for _, id := range members {
		m := CanMoveEntity(v, id, dir)
		switch m.Check {
		case Can:
		case NotAnObject:
			e, _ := v.Entity(id)
			violate(&ConsistencyError{Op: "can_move", Kind: e.Kind, Pos: e.Pos, Entity: id, Err: ErrNotAnObject})
		case BumpedIntoWall:
			res.addBumpedInto(Blocker{Mover: id, Obstacle: m.Obstacle, Kind: KindWall})
		case BumpedIntoObject:
			if !isMember(m.Obstacle) {
				res.addBumpedInto(Blocker{Mover: id, Obstacle: m.Obstacle, Kind: KindObject})
			}
		case NoFloor:
			res.addNoFloor(id)
		case UnwalkableFloor:
			res.addUnwalkable(m.Obstacle)
		}
	}
	return res
}
