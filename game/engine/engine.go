package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	GetConfig() *LevelConfig
	Reset() *GameState
	IsSolved() bool
	World() *World
	Loop() *Loop

	// Movement operations
	Move(dir Direction) (*TurnReport, error)
	BulkMove(dirs []Direction) ([]*TurnReport, error)
	CanMove(dir Direction) CanMoveResult
	GetPossibleMoves() []string

	// Undo
	Undo() error
	UndoTurn() error

	// Journal
	Journal() []Command
	Replay(journal []Command) error

	// Presentation helpers
	Render() string
}

// CommandKind names a journaled engine command
type CommandKind string

const (
	CommandMove     CommandKind = "move"
	CommandUndo     CommandKind = "undo"
	CommandUndoTurn CommandKind = "undo_turn"
	CommandReset    CommandKind = "reset"
)

// Command is one journaled input. Replaying a journal on a fresh engine
// reproduces the exact same world.
type Command struct {
	Kind      CommandKind `json:"kind"`
	Direction string      `json:"direction,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// TurnReport summarizes one move signal after the loop settled
type TurnReport struct {
	Direction string        `json:"direction"`
	Progress  bool          `json:"progress"`
	Frames    []Frame       `json:"frames"`
	Duration  time.Duration `json:"duration"`
	Collected int           `json:"collected"`
	Solved    bool          `json:"solved"`
	Message   string        `json:"message,omitempty"`
}

// GameEngine implements the Engine interface
type GameEngine struct {
	config *LevelConfig
	world  *World
	loop   *Loop

	colors []Color
	mode   ControlMode
	total  int

	turns   int
	moves   int
	journal []Command
	message string

	frames []Frame
}

// NewEngine creates a new game engine for the level
func NewEngine(config *LevelConfig) (*GameEngine, error) {
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}
	colors, err := config.ControlledColors()
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		colors: colors,
		mode:   config.Control(),
	}
	if err := e.rebuild(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates an engine for the built-in level
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultLevel())
	if err != nil {
		panic(fmt.Sprintf("default level is invalid: %v", err))
	}
	return e
}

func (e *GameEngine) rebuild() error {
	w, err := BuildWorld(e.config)
	if err != nil {
		return err
	}
	e.world = w
	e.total = len(w.Live(KindCollectible))

	if e.loop == nil {
		e.loop = NewLoop(w)
		e.loop.OnSignal(ControlReaction(e.colors, e.mode))
		e.loop.OnStep(CollectReaction(e.colors))
		e.loop.Observe(func(f Frame) {
			e.frames = append(e.frames, f)
		})
	} else {
		e.loop.Attach(w)
	}

	e.turns = 0
	e.moves = 0
	e.message = e.config.Messages.Welcome
	return nil
}

func (e *GameEngine) record(kind CommandKind, dir string) {
	e.journal = append(e.journal, Command{Kind: kind, Direction: dir, Timestamp: time.Now().Unix()})
}

// World returns the simulation state
func (e *GameEngine) World() *World {
	return e.world
}

// Loop returns the turn loop
func (e *GameEngine) Loop() *Loop {
	return e.loop
}

// GetConfig returns the level configuration
func (e *GameEngine) GetConfig() *LevelConfig {
	return e.config
}

// Reset rebuilds the level and clears the undo history. The journal keeps
// the reset so replays stay faithful.
func (e *GameEngine) Reset() *GameState {
	e.record(CommandReset, "")
	if err := e.rebuild(); err != nil {
		// config was validated in NewEngine
		panic(err)
	}
	return e.GetState()
}

// IsSolved reports whether every collectible of the level was picked up
func (e *GameEngine) IsSolved() bool {
	return e.total > 0 && len(e.world.Live(KindCollectible)) == 0
}

// Move sends a move signal and runs the loop until it settles
func (e *GameEngine) Move(dir Direction) (*TurnReport, error) {
	if err := e.loop.Settle(DefaultSettleTickLimit); err != nil {
		return nil, err
	}
	e.record(CommandMove, dir.String())

	before := len(e.world.Live(KindCollectible))
	e.frames = nil
	e.loop.Send(MoveSignal(dir))

	var elapsed time.Duration
	for i := 0; ; i++ {
		if i >= DefaultSettleTickLimit {
			return nil, fmt.Errorf("%w after %d ticks", ErrNotSettled, i)
		}
		step := e.loop.Timer().Remaining()
		elapsed += step
		e.loop.Tick(step)
		if e.loop.State() == Idle {
			break
		}
	}

	report := &TurnReport{
		Direction: dir.String(),
		Frames:    e.frames,
		Duration:  elapsed,
		Collected: before - len(e.world.Live(KindCollectible)),
	}
	for _, f := range e.frames {
		if f.Outcome != OutcomeFailed.String() {
			report.Progress = true
			break
		}
	}

	e.moves++
	switch {
	case report.Progress:
		e.turns++
		e.message = ""
	default:
		e.message = e.config.Messages.Blocked
	}
	report.Solved = e.IsSolved()
	if report.Solved {
		e.message = e.config.Messages.Solved
	}
	report.Message = e.message
	return report, nil
}

// BulkMove performs several moves in order, stopping at the first error
func (e *GameEngine) BulkMove(dirs []Direction) ([]*TurnReport, error) {
	if len(dirs) > MaxBulkMoves {
		return nil, fmt.Errorf("too many moves: %d, max is %d", len(dirs), MaxBulkMoves)
	}
	reports := make([]*TurnReport, 0, len(dirs))
	for _, d := range dirs {
		r, err := e.Move(d)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (e *GameEngine) controlledTarget(dir Direction) Target {
	t := ColorTarget(e.colors...)
	if e.mode == ControlPush {
		t = t.With(pushChain(e.world, t.FittingObjects(e.world), dir)...)
	}
	return t
}

// CanMove checks whether the controlled objects could move in dir
func (e *GameEngine) CanMove(dir Direction) CanMoveResult {
	if e.mode == ControlIndependent {
		return CanMoveIndependently(e.world, ColorTarget(e.colors...), dir)
	}
	return CanMove(e.world, e.controlledTarget(dir), dir)
}

// GetPossibleMoves returns all directions the controlled objects can move
func (e *GameEngine) GetPossibleMoves() []string {
	var possible []string
	for _, d := range AllDirections {
		if e.CanMove(d).OK() {
			possible = append(possible, d.String())
		}
	}
	return possible
}

func (e *GameEngine) undoWith(fn func() (time.Duration, error), kind CommandKind) error {
	e.loop.Flush()
	d, err := fn()
	if err != nil {
		return err
	}
	e.record(kind, "")
	e.loop.Timer().Start(d)
	e.message = ""
	return nil
}

// Undo reverses the most recent committed change
func (e *GameEngine) Undo() error {
	return e.undoWith(e.world.Undo, CommandUndo)
}

// UndoTurn reverses everything the latest turn committed
func (e *GameEngine) UndoTurn() error {
	if err := e.undoWith(e.world.UndoTurn, CommandUndoTurn); err != nil {
		return err
	}
	if e.turns > 0 {
		e.turns--
	}
	return nil
}

// Journal returns the commands applied so far
func (e *GameEngine) Journal() []Command {
	out := make([]Command, len(e.journal))
	copy(out, e.journal)
	return out
}

// Replay rebuilds the level and applies the journal in order
func (e *GameEngine) Replay(journal []Command) error {
	e.journal = nil
	if err := e.rebuild(); err != nil {
		return err
	}

	for i, cmd := range journal {
		var err error
		switch cmd.Kind {
		case CommandMove:
			var d Direction
			if d, err = ParseDirection(cmd.Direction); err == nil {
				_, err = e.Move(d)
			}
		case CommandUndo:
			err = e.Undo()
		case CommandUndoTurn:
			err = e.UndoTurn()
		case CommandReset:
			e.Reset()
		default:
			err = fmt.Errorf("unknown command %q", cmd.Kind)
		}
		if err != nil {
			return fmt.Errorf("replay command %d: %w", i, err)
		}
		if len(e.journal) > 0 {
			e.journal[len(e.journal)-1].Timestamp = cmd.Timestamp
		}
	}
	return e.loop.Settle(DefaultSettleTickLimit)
}
