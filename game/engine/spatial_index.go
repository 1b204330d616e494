package engine

type wallKey struct {
	Pos   Position
	Align WallAlignment
}

// canonicalWall maps a (cell, direction) edge to its stored key.
// Down and Left resolve to the neighbor's Top and Right entries.
func canonicalWall(pos Position, dir Direction) wallKey {
	switch dir {
	case Up:
		return wallKey{Pos: pos, Align: AlignTop}
	case Right:
		return wallKey{Pos: pos, Align: AlignRight}
	case Down:
		return wallKey{Pos: pos.Step(Down), Align: AlignTop}
	default:
		return wallKey{Pos: pos.Step(Left), Align: AlignRight}
	}
}

// SpatialIndex is the authoritative position to entity lookup.
// Each live entity has exactly one entry, in the map for its kind, under its
// current position. Every mutation that would break this panics.
type SpatialIndex struct {
	floors       map[Position]EntityID
	objects      map[Position]EntityID
	collectibles map[Position]EntityID
	walls        map[wallKey]EntityID
}

// NewSpatialIndex creates an empty index
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		floors:       make(map[Position]EntityID),
		objects:      make(map[Position]EntityID),
		collectibles: make(map[Position]EntityID),
		walls:        make(map[wallKey]EntityID),
	}
}

// Floor returns the floor at pos
func (s *SpatialIndex) Floor(pos Position) (EntityID, bool) {
	id, ok := s.floors[pos]
	return id, ok
}

// Object returns the object at pos
func (s *SpatialIndex) Object(pos Position) (EntityID, bool) {
	id, ok := s.objects[pos]
	return id, ok
}

// Collectible returns the collectible at pos
func (s *SpatialIndex) Collectible(pos Position) (EntityID, bool) {
	id, ok := s.collectibles[pos]
	return id, ok
}

// Wall returns the wall on the edge of pos facing dir
func (s *SpatialIndex) Wall(pos Position, dir Direction) (EntityID, bool) {
	id, ok := s.walls[canonicalWall(pos, dir)]
	return id, ok
}

// Len returns the number of entries per kind
func (s *SpatialIndex) Len(kind Kind) int {
	switch kind {
	case KindFloor:
		return len(s.floors)
	case KindObject:
		return len(s.objects)
	case KindCollectible:
		return len(s.collectibles)
	default:
		return len(s.walls)
	}
}

func (s *SpatialIndex) cellMap(kind Kind) map[Position]EntityID {
	switch kind {
	case KindFloor:
		return s.floors
	case KindObject:
		return s.objects
	case KindCollectible:
		return s.collectibles
	}
	return nil
}

// Insert adds the entry for e. The slot must be empty.
func (s *SpatialIndex) Insert(e Entity) {
	if e.Kind == KindWall {
		key := wallKey{Pos: e.Pos, Align: e.Alignment}
		if e.Alignment != AlignTop && e.Alignment != AlignRight {
			violate(&ConsistencyError{Op: "insert", Kind: e.Kind, Pos: e.Pos, Entity: e.ID})
		}
		if found, ok := s.walls[key]; ok {
			violate(&ConsistencyError{Op: "insert", Kind: e.Kind, Pos: e.Pos, Entity: e.ID, Found: found})
		}
		s.walls[key] = e.ID
		return
	}

	m := s.cellMap(e.Kind)
	if found, ok := m[e.Pos]; ok {
		violate(&ConsistencyError{Op: "insert", Kind: e.Kind, Pos: e.Pos, Entity: e.ID, Found: found})
	}
	m[e.Pos] = e.ID
}

// Remove deletes the entry for e. The slot must hold exactly e.
func (s *SpatialIndex) Remove(e Entity) {
	if e.Kind == KindWall {
		key := wallKey{Pos: e.Pos, Align: e.Alignment}
		found, ok := s.walls[key]
		if !ok || found != e.ID {
			violate(&ConsistencyError{Op: "remove", Kind: e.Kind, Pos: e.Pos, Entity: e.ID, Found: found})
		}
		delete(s.walls, key)
		return
	}

	m := s.cellMap(e.Kind)
	found, ok := m[e.Pos]
	if !ok || found != e.ID {
		violate(&ConsistencyError{Op: "remove", Kind: e.Kind, Pos: e.Pos, Entity: e.ID, Found: found})
	}
	delete(m, e.Pos)
}

// SwapObjects exchanges the object entries at a and b. If only one cell is
// occupied its object moves to the other cell; if neither is, nothing happens.
func (s *SpatialIndex) SwapObjects(a, b Position) {
	idA, okA := s.objects[a]
	idB, okB := s.objects[b]

	switch {
	case okA && okB:
		s.objects[a], s.objects[b] = idB, idA
	case okA:
		delete(s.objects, a)
		s.objects[b] = idA
	case okB:
		delete(s.objects, b)
		s.objects[a] = idB
	}
}
