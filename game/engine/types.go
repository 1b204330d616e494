package engine

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Validation constants
	MaxLevelWidth          = 64
	MaxLevelHeight         = 64
	MaxBulkMoves           = 50
	DefaultMovementMs      = 150
	DefaultSettleTickLimit = 10000
	SignalInboxSize        = 64
)

// Position represents integer x,y coordinates. Y grows upward.
type Position struct {
	X int `json:"x" yaml:"x" msgpack:"x"`
	Y int `json:"y" yaml:"y" msgpack:"y"`
}

// Add returns p shifted by o
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Step returns the neighbor of p in direction d
func (p Position) Step(d Direction) Position {
	return p.Add(d.Vec())
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the four grid directions
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// AllDirections lists directions in a stable order
var AllDirections = []Direction{Up, Down, Left, Right}

// Vec returns the unit offset of the direction
func (d Direction) Vec() Position {
	switch d {
	case Up:
		return Position{Y: 1}
	case Down:
		return Position{Y: -1}
	case Left:
		return Position{X: -1}
	default:
		return Position{X: 1}
	}
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// ParseDirection converts user input into a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "north", "n":
		return Up, nil
	case "down", "d", "south", "s":
		return Down, nil
	case "left", "l", "west", "w":
		return Left, nil
	case "right", "r", "east", "e":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EntityID is a stable arena index. IDs are never reused within a world.
type EntityID uint32

// Kind is the entity kind
type Kind uint8

const (
	KindFloor Kind = iota
	KindObject
	KindCollectible
	KindWall
)

func (k Kind) String() string {
	switch k {
	case KindFloor:
		return "floor"
	case KindObject:
		return "object"
	case KindCollectible:
		return "collectible"
	case KindWall:
		return "wall"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// WallAlignment selects which canonical edge of a cell a wall occupies
type WallAlignment uint8

const (
	// AlignNone is used by non-wall entities
	AlignNone WallAlignment = iota
	// AlignTop is the edge between pos and pos+Up
	AlignTop
	// AlignRight is the edge between pos and pos+Right
	AlignRight
)

func (a WallAlignment) String() string {
	switch a {
	case AlignTop:
		return "top"
	case AlignRight:
		return "right"
	}
	return ""
}

// Color is a group tag
type Color uint8

const (
	ColorNone Color = iota
	Red
	Blue
	Green
	Yellow
	Pink
	Cyan
)

var colorNames = map[Color]string{
	Red:    "red",
	Blue:   "blue",
	Green:  "green",
	Yellow: "yellow",
	Pink:   "pink",
	Cyan:   "cyan",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return "none"
}

// ParseColor converts a color name into a Color
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range colorNames {
		if name == s {
			return c, nil
		}
	}
	return ColorNone, fmt.Errorf("unknown group color %q", s)
}

// Group is a color tag, or the ungrouped fallback keyed by the entity itself.
type Group struct {
	Color  Color
	Entity EntityID
}

// ColorGroup returns the group for a color
func ColorGroup(c Color) Group {
	return Group{Color: c}
}

func (g Group) String() string {
	if g.Color == ColorNone {
		return fmt.Sprintf("ungrouped#%d", g.Entity)
	}
	return g.Color.String()
}

// Phase tells presentation whether an entity is moving forward or being rewound
type Phase uint8

const (
	PhaseApplying Phase = iota + 1
	PhaseUndoing
)

func (p Phase) String() string {
	switch p {
	case PhaseApplying:
		return "applying"
	case PhaseUndoing:
		return "undoing"
	}
	return ""
}

// Performing marks an entity as mid-animation for an action
type Performing struct {
	Action Action
	Phase  Phase
}

// ObjectCaps are the capability flags of an object
type ObjectCaps struct {
	NeedsWalkableFloor bool
	PassesThroughWalls bool
	Pushable           bool
}

// EntitySpec describes an entity to create
type EntitySpec struct {
	Kind      Kind
	Pos       Position
	Alignment WallAlignment
	Color     Color
	Caps      ObjectCaps
	// Unwalkable applies to floors
	Unwalkable bool
	// AlwaysPassable applies to walls
	AlwaysPassable bool
	Movement       time.Duration
}
