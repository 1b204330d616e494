package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WallSpec places a wall on one edge of a cell
type WallSpec struct {
	X              int    `json:"x" yaml:"x"`
	Y              int    `json:"y" yaml:"y"`
	Side           string `json:"side" yaml:"side"`
	AlwaysPassable bool   `json:"always_passable,omitempty" yaml:"always_passable,omitempty"`
}

// ObjectSpec overrides the defaults of a layout object
type ObjectSpec struct {
	X                  int    `json:"x" yaml:"x"`
	Y                  int    `json:"y" yaml:"y"`
	Group              string `json:"group,omitempty" yaml:"group,omitempty"`
	NeedsWalkableFloor *bool  `json:"needs_walkable_floor,omitempty" yaml:"needs_walkable_floor,omitempty"`
	PassesThroughWalls *bool  `json:"passes_through_walls,omitempty" yaml:"passes_through_walls,omitempty"`
	Pushable           *bool  `json:"pushable,omitempty" yaml:"pushable,omitempty"`
	MovementMs         *int   `json:"movement_ms,omitempty" yaml:"movement_ms,omitempty"`
}

// LevelMessages are the player-facing texts of a level
type LevelMessages struct {
	Welcome string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Solved  string `json:"solved,omitempty" yaml:"solved,omitempty"`
	Blocked string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// LevelConfig describes a level. Layout rows are written top to bottom;
// coordinates have y growing upward, so row r sits at y = len(layout)-1-r.
type LevelConfig struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Layout      []string      `json:"layout" yaml:"layout"`
	Walls       []WallSpec    `json:"walls,omitempty" yaml:"walls,omitempty"`
	Objects     []ObjectSpec  `json:"objects,omitempty" yaml:"objects,omitempty"`
	Controlled  []string      `json:"controlled,omitempty" yaml:"controlled,omitempty"`
	Push        *bool         `json:"push,omitempty" yaml:"push,omitempty"`
	Independent bool          `json:"independent,omitempty" yaml:"independent,omitempty"`
	MovementMs  int           `json:"movement_ms,omitempty" yaml:"movement_ms,omitempty"`
	Messages    LevelMessages `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Width returns the layout width
func (c *LevelConfig) Width() int {
	if len(c.Layout) == 0 {
		return 0
	}
	return len(c.Layout[0])
}

// Height returns the layout height
func (c *LevelConfig) Height() int {
	return len(c.Layout)
}

// CellAt returns the layout character at x,y
func (c *LevelConfig) CellAt(x, y int) byte {
	r := len(c.Layout) - 1 - y
	if r < 0 || r >= len(c.Layout) || x < 0 || x >= len(c.Layout[r]) {
		return '-'
	}
	return c.Layout[r][x]
}

// ControlledColors returns the colors moved by signals, red by default
func (c *LevelConfig) ControlledColors() ([]Color, error) {
	if len(c.Controlled) == 0 {
		return []Color{Red}, nil
	}
	colors := make([]Color, 0, len(c.Controlled))
	for _, name := range c.Controlled {
		col, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		colors = append(colors, col)
	}
	return colors, nil
}

// Pushes reports whether controlled objects shove pushable ones, true by default
func (c *LevelConfig) Pushes() bool {
	return c.Push == nil || *c.Push
}

// Control returns how the controlled objects answer a move. Independent
// pieces never push.
func (c *LevelConfig) Control() ControlMode {
	switch {
	case c.Independent:
		return ControlIndependent
	case c.Pushes():
		return ControlPush
	}
	return ControlWalk
}

// Movement returns the default movement duration of objects
func (c *LevelConfig) Movement() time.Duration {
	if c.MovementMs <= 0 {
		return DefaultMovementMs * time.Millisecond
	}
	return time.Duration(c.MovementMs) * time.Millisecond
}

var layoutColors = map[byte]Color{
	'R': Red, '@': Red, 'x': Red,
	'B': Blue, 'G': Green, 'Y': Yellow, 'P': Pink, 'C': Cyan,
}

func isObjectCell(ch byte) bool {
	_, colored := layoutColors[ch]
	return colored || ch == 'o'
}

func validCell(ch byte) bool {
	switch ch {
	case '.', '~', '-', ' ', '*', 'o':
		return true
	}
	return isObjectCell(ch)
}

func parseSide(side string) (Direction, error) {
	switch strings.ToLower(side) {
	case "top", "up":
		return Up, nil
	case "bottom", "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown wall side %q", side)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidLevel, fmt.Sprintf(format, args...))
}

// ValidateLevelConfig checks a level for structural correctness
func ValidateLevelConfig(config *LevelConfig) error {
	if config == nil {
		return invalid("config is nil")
	}
	if config.Name == "" {
		return invalid("name is required")
	}
	if len(config.Layout) == 0 {
		return invalid("layout is required")
	}
	if config.Height() > MaxLevelHeight {
		return invalid("layout has %d rows, max is %d", config.Height(), MaxLevelHeight)
	}

	width := config.Width()
	if width == 0 || width > MaxLevelWidth {
		return invalid("layout width must be between 1 and %d, got %d", MaxLevelWidth, width)
	}

	colors, err := config.ControlledColors()
	if err != nil {
		return invalid("controlled: %v", err)
	}
	controlled := make(map[Color]bool, len(colors))
	for _, c := range colors {
		controlled[c] = true
	}

	hasControlled := false
	for i, row := range config.Layout {
		if len(row) != width {
			return invalid("row %d must have %d characters, got %d", i+1, width, len(row))
		}
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if !validCell(ch) {
				return invalid("invalid character '%c' at row %d, col %d", ch, i+1, j+1)
			}
			if c, ok := layoutColors[ch]; ok && controlled[c] {
				hasControlled = true
			}
		}
	}

	seenWalls := make(map[wallKey]bool)
	for i, w := range config.Walls {
		dir, err := parseSide(w.Side)
		if err != nil {
			return invalid("walls[%d]: %v", i, err)
		}
		if w.X < -1 || w.X > width || w.Y < -1 || w.Y > config.Height() {
			return invalid("walls[%d] at (%d,%d) is outside the level", i, w.X, w.Y)
		}
		key := canonicalWall(Position{X: w.X, Y: w.Y}, dir)
		if seenWalls[key] {
			return invalid("walls[%d] duplicates an existing wall", i)
		}
		seenWalls[key] = true
	}

	for i, o := range config.Objects {
		if !isObjectCell(config.CellAt(o.X, o.Y)) {
			return invalid("objects[%d] at (%d,%d) does not point at an object", i, o.X, o.Y)
		}
		if o.Group != "" && o.Group != "none" {
			c, err := ParseColor(o.Group)
			if err != nil {
				return invalid("objects[%d]: %v", i, err)
			}
			if controlled[c] {
				hasControlled = true
			}
		}
		if o.MovementMs != nil && *o.MovementMs < 0 {
			return invalid("objects[%d]: movement_ms cannot be negative", i)
		}
	}

	if !hasControlled {
		return invalid("layout must contain at least one controlled object")
	}
	if config.MovementMs < 0 {
		return invalid("movement_ms cannot be negative")
	}

	return nil
}

// ParseLevel decodes a level from JSON or YAML. The format is picked from
// the file extension; anything other than .yaml or .yml is JSON.
func ParseLevel(data []byte, filename string) (*LevelConfig, error) {
	var config LevelConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}
	return &config, nil
}

// LoadLevelFile reads, parses and validates a level file. Paths starting
// with "levels/" are redirected to LEVELS_DIR when it is set.
func LoadLevelFile(filename string) (*LevelConfig, error) {
	path := filename
	if dir := os.Getenv("LEVELS_DIR"); dir != "" && strings.HasPrefix(filename, "levels/") {
		path = filepath.Join(dir, strings.TrimPrefix(filename, "levels/"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config, err := ParseLevel(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultLevel returns the built-in level used when none is configured
func DefaultLevel() *LevelConfig {
	return &LevelConfig{
		Name:        "default",
		Description: "Push the box aside and pick up both stars",
		Layout: []string{
			"-.....-",
			"..*.o..",
			".@.~...",
			"...o.*.",
			"-.....-",
		},
		Walls: []WallSpec{
			{X: 3, Y: 0, Side: "top"},
		},
		Messages: LevelMessages{
			Welcome: "Collect every star. Boxes can be pushed, water cannot be crossed.",
			Solved:  "Level solved!",
			Blocked: "Something is in the way.",
		},
	}
}

// BuildWorld creates the entity set of a level and registers it with the
// spatial index.
func BuildWorld(config *LevelConfig) (*World, error) {
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}

	overrides := make(map[Position]ObjectSpec, len(config.Objects))
	for _, o := range config.Objects {
		overrides[Position{X: o.X, Y: o.Y}] = o
	}

	w := NewWorld()
	movement := config.Movement()

	for y := config.Height() - 1; y >= 0; y-- {
		for x := 0; x < config.Width(); x++ {
			pos := Position{X: x, Y: y}
			ch := config.CellAt(x, y)

			switch ch {
			case '-', ' ', 'x':
			case '~':
				w.create(EntitySpec{Kind: KindFloor, Pos: pos, Unwalkable: true})
			default:
				w.create(EntitySpec{Kind: KindFloor, Pos: pos})
			}

			if ch == '*' {
				w.create(EntitySpec{Kind: KindCollectible, Pos: pos})
			}

			if !isObjectCell(ch) {
				continue
			}
			spec := EntitySpec{
				Kind:     KindObject,
				Pos:      pos,
				Color:    layoutColors[ch],
				Movement: movement,
				Caps:     ObjectCaps{NeedsWalkableFloor: true},
			}
			switch ch {
			case 'o':
				spec.Caps.Pushable = true
			case 'x':
				spec.Caps = ObjectCaps{PassesThroughWalls: true}
			}
			if o, ok := overrides[pos]; ok {
				if err := applyOverride(&spec, o); err != nil {
					return nil, err
				}
			}
			w.create(spec)
		}
	}

	for _, ws := range config.Walls {
		dir, _ := parseSide(ws.Side)
		key := canonicalWall(Position{X: ws.X, Y: ws.Y}, dir)
		w.create(EntitySpec{
			Kind:           KindWall,
			Pos:            key.Pos,
			Alignment:      key.Align,
			AlwaysPassable: ws.AlwaysPassable,
		})
	}

	return w, nil
}

func applyOverride(spec *EntitySpec, o ObjectSpec) error {
	switch o.Group {
	case "":
	case "none":
		spec.Color = ColorNone
	default:
		c, err := ParseColor(o.Group)
		if err != nil {
			return invalid("object at (%d,%d): %v", o.X, o.Y, err)
		}
		spec.Color = c
	}
	if o.NeedsWalkableFloor != nil {
		spec.Caps.NeedsWalkableFloor = *o.NeedsWalkableFloor
	}
	if o.PassesThroughWalls != nil {
		spec.Caps.PassesThroughWalls = *o.PassesThroughWalls
	}
	if o.Pushable != nil {
		spec.Caps.Pushable = *o.Pushable
	}
	if o.MovementMs != nil {
		spec.Movement = time.Duration(*o.MovementMs) * time.Millisecond
	}
	return nil
}
