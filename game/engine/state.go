package engine

import (
	"fmt"
	"strings"
)

// EntityState is the presentation view of one live entity
type EntityState struct {
	ID                 EntityID `json:"id"`
	Kind               string   `json:"kind"`
	X                  int      `json:"x"`
	Y                  int      `json:"y"`
	Side               string   `json:"side,omitempty"`
	Group              string   `json:"group,omitempty"`
	NeedsWalkableFloor bool     `json:"needs_walkable_floor,omitempty"`
	PassesThroughWalls bool     `json:"passes_through_walls,omitempty"`
	Pushable           bool     `json:"pushable,omitempty"`
	Unwalkable         bool     `json:"unwalkable,omitempty"`
	AlwaysPassable     bool     `json:"always_passable,omitempty"`
	Performing         string   `json:"performing,omitempty"`
	Phase              string   `json:"phase,omitempty"`
}

// GameState is a serializable snapshot of a level session
type GameState struct {
	Level         string        `json:"level"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	Entities      []EntityState `json:"entities"`
	Turns         int           `json:"turns"`
	Moves         int           `json:"moves"`
	Collected     int           `json:"collected"`
	Remaining     int           `json:"remaining"`
	Solved        bool          `json:"solved"`
	UndoDepth     int           `json:"undo_depth"`
	Loop          string        `json:"loop"`
	Message       string        `json:"message,omitempty"`
	PossibleMoves []string      `json:"possible_moves"`
	ControlledPos []Position    `json:"controlled_positions"`
}

// Snapshot builds the presentation view of a world
func Snapshot(w *World) []EntityState {
	entities := w.Entities()
	out := make([]EntityState, 0, len(entities))
	for _, e := range entities {
		es := EntityState{
			ID:   e.ID,
			Kind: e.Kind.String(),
			X:    e.Pos.X,
			Y:    e.Pos.Y,
			Side: e.Alignment.String(),
		}
		if g := w.GroupOf(e.ID); g.Color != ColorNone {
			es.Group = g.Color.String()
		}
		switch e.Kind {
		case KindObject:
			caps := w.Caps(e.ID)
			es.NeedsWalkableFloor = caps.NeedsWalkableFloor
			es.PassesThroughWalls = caps.PassesThroughWalls
			es.Pushable = caps.Pushable
		case KindFloor:
			es.Unwalkable = w.IsUnwalkable(e.ID)
		case KindWall:
			es.AlwaysPassable = w.IsAlwaysPassable(e.ID)
		}
		if p, ok := w.PerformingOf(e.ID); ok {
			es.Performing = p.Action.Name()
			es.Phase = p.Phase.String()
		}
		out = append(out, es)
	}
	return out
}

// GetState returns a snapshot of the current game state
func (e *GameEngine) GetState() *GameState {
	remaining := len(e.world.Live(KindCollectible))
	state := &GameState{
		Level:         e.config.Name,
		Width:         e.config.Width(),
		Height:        e.config.Height(),
		Entities:      Snapshot(e.world),
		Turns:         e.turns,
		Moves:         e.moves,
		Collected:     e.total - remaining,
		Remaining:     remaining,
		Solved:        e.IsSolved(),
		UndoDepth:     e.world.undo.Depth(),
		Loop:          e.loop.State().String(),
		Message:       e.message,
		PossibleMoves: e.GetPossibleMoves(),
	}
	for _, id := range ColorTarget(e.colors...).FittingObjects(e.world) {
		state.ControlledPos = append(state.ControlledPos, e.world.entities[id].Pos)
	}
	return state
}

// CellChar returns the character of the topmost entity at pos
func CellChar(w *World, pos Position) byte {
	if id, ok := w.Object(pos); ok {
		caps := w.Caps(id)
		switch c := w.GroupOf(id).Color; {
		case c == ColorNone:
			return 'o'
		case caps.PassesThroughWalls:
			return 'x'
		default:
			return strings.ToUpper(c.String())[0]
		}
	}
	if _, ok := w.Collectible(pos); ok {
		return '*'
	}
	if id, ok := w.Floor(pos); ok {
		if w.IsUnwalkable(id) {
			return '~'
		}
		return '.'
	}
	return '-'
}

// Render draws the level with the layout legend, top row first, followed by
// the wall list.
func (e *GameEngine) Render() string {
	return RenderWorld(e.world, e.config.Width(), e.config.Height())
}

// RenderWorld draws a width by height window of the world
func RenderWorld(w *World, width, height int) string {
	var b strings.Builder
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			b.WriteByte(CellChar(w, Position{X: x, Y: y}))
		}
		b.WriteByte('\n')
	}
	for _, id := range w.Live(KindWall) {
		wall := w.entities[id]
		suffix := ""
		if w.IsAlwaysPassable(id) {
			suffix = " (passable)"
		}
		fmt.Fprintf(&b, "wall %s %s%s\n", wall.Pos, wall.Alignment, suffix)
	}
	return b.String()
}
