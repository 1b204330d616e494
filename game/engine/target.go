package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// ExactTarget selects a single entity slot by kind and position
type ExactTarget struct {
	Kind Kind
	Pos  Position
	// Dir picks the wall edge when Kind is KindWall
	Dir Direction
}

// ExactObject selects the object at pos
func ExactObject(pos Position) ExactTarget { return ExactTarget{Kind: KindObject, Pos: pos} }

// ExactFloor selects the floor at pos
func ExactFloor(pos Position) ExactTarget { return ExactTarget{Kind: KindFloor, Pos: pos} }

// ExactCollectible selects the collectible at pos
func ExactCollectible(pos Position) ExactTarget {
	return ExactTarget{Kind: KindCollectible, Pos: pos}
}

// ExactWall selects the wall on the edge of pos facing dir
func ExactWall(pos Position, dir Direction) ExactTarget {
	return ExactTarget{Kind: KindWall, Pos: pos, Dir: dir}
}

func (x ExactTarget) resolve(v View) (EntityID, bool) {
	switch x.Kind {
	case KindFloor:
		return v.Floor(x.Pos)
	case KindObject:
		return v.Object(x.Pos)
	case KindCollectible:
		return v.Collectible(x.Pos)
	default:
		return v.Wall(x.Pos, x.Dir)
	}
}

// Target is a selection of entities: every member of any listed group plus
// every entity found at the listed exact slots. Resolving never mutates.
type Target struct {
	Groups mapset.Set[Group]
	Cells  []ExactTarget
}

// GroupTarget selects all entities tagged with any of the groups
func GroupTarget(groups ...Group) Target {
	t := Target{Groups: mapset.New[Group]()}
	for _, g := range groups {
		t.Groups.Put(g)
	}
	return t
}

// ColorTarget selects all entities of the given colors
func ColorTarget(colors ...Color) Target {
	t := Target{Groups: mapset.New[Group]()}
	for _, c := range colors {
		t.Groups.Put(ColorGroup(c))
	}
	return t
}

// CellTarget selects every entity at pos, walls on all four edges included
func CellTarget(pos Position) Target {
	cells := []ExactTarget{ExactFloor(pos), ExactObject(pos), ExactCollectible(pos)}
	for _, d := range AllDirections {
		cells = append(cells, ExactWall(pos, d))
	}
	return Target{Cells: cells}
}

// ExactTargets selects the listed slots only
func ExactTargets(cells ...ExactTarget) Target {
	return Target{Cells: cells}
}

// With returns a copy of t that also matches the extra slots
func (t Target) With(cells ...ExactTarget) Target {
	merged := make([]ExactTarget, 0, len(t.Cells)+len(cells))
	merged = append(merged, t.Cells...)
	merged = append(merged, cells...)
	return Target{Groups: t.Groups, Cells: merged}
}

func (t Target) hasGroup(g Group) bool {
	return t.Groups.Size() > 0 && t.Groups.Has(g)
}

// Matches reports whether the entity belongs to the target
func (t Target) Matches(v View, id EntityID) bool {
	e, ok := v.Entity(id)
	if !ok || !e.Alive {
		return false
	}
	if t.hasGroup(v.GroupOf(id)) {
		return true
	}
	for _, c := range t.Cells {
		if c.Kind != e.Kind {
			continue
		}
		if found, ok := c.resolve(v); ok && found == id {
			return true
		}
	}
	return false
}

// Fitting returns the live entities of kind that the target matches, in id
// order and without duplicates.
func (t Target) Fitting(v View, kind Kind) []EntityID {
	seen := mapset.New[EntityID]()
	var out []EntityID

	if t.Groups.Size() > 0 {
		for _, id := range v.Live(kind) {
			if t.Groups.Has(v.GroupOf(id)) {
				seen.Put(id)
				out = append(out, id)
			}
		}
	}
	for _, c := range t.Cells {
		if c.Kind != kind {
			continue
		}
		if id, ok := c.resolve(v); ok && !seen.Has(id) {
			seen.Put(id)
			out = append(out, id)
		}
	}

	sortIDs(out)
	return out
}

// FittingObjects returns the objects the target matches
func (t Target) FittingObjects(v View) []EntityID { return t.Fitting(v, KindObject) }

// FittingCollectibles returns the collectibles the target matches
func (t Target) FittingCollectibles(v View) []EntityID { return t.Fitting(v, KindCollectible) }

func (t Target) String() string {
	var parts []string
	if t.Groups.Size() > 0 {
		t.Groups.Each(func(g Group) {
			parts = append(parts, g.String())
		})
		sort.Strings(parts)
	}
	for _, c := range t.Cells {
		parts = append(parts, fmt.Sprintf("%s@%s", c.Kind, c.Pos))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
