package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

var defaultSolution = []Direction{Up, Right, Right, Right, Down, Down, Right}

func TestNewEngine(t *testing.T) {
	e := NewEngineWithDefaults()
	state := e.GetState()

	if state.Level != "default" {
		t.Errorf("Expected level 'default', got %q", state.Level)
	}
	if state.Width != 7 || state.Height != 5 {
		t.Errorf("Expected 7x5, got %dx%d", state.Width, state.Height)
	}
	if state.Remaining != 2 || state.Collected != 0 {
		t.Errorf("Expected 2 remaining stars, got %d (%d collected)", state.Remaining, state.Collected)
	}
	if state.Solved {
		t.Error("Fresh level must not be solved")
	}
	if len(state.ControlledPos) != 1 || state.ControlledPos[0] != pos(1, 2) {
		t.Errorf("Expected the player at (1,2), got %v", state.ControlledPos)
	}
	if state.Message != DefaultLevel().Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}
	if state.Loop != "idle" {
		t.Errorf("Expected idle loop, got %q", state.Loop)
	}

	if _, err := NewEngine(&LevelConfig{Name: "broken"}); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}
}

func TestEngine_SolveDefaultLevel(t *testing.T) {
	e := NewEngineWithDefaults()

	var last *TurnReport
	for i, d := range defaultSolution {
		r, err := e.Move(d)
		if err != nil {
			t.Fatalf("move %d (%v) failed: %v", i, d, err)
		}
		if !r.Progress {
			t.Fatalf("move %d (%v) made no progress: %+v", i, d, r.Frames)
		}
		last = r
	}

	if !last.Solved || !e.IsSolved() {
		t.Fatal("Expected the level to be solved")
	}
	if last.Message != DefaultLevel().Messages.Solved {
		t.Errorf("Expected solved message, got %q", last.Message)
	}
	if last.Collected != 1 {
		t.Errorf("Expected the last move to collect one star, got %d", last.Collected)
	}

	state := e.GetState()
	if state.Turns != len(defaultSolution) || state.Moves != len(defaultSolution) {
		t.Errorf("Expected %d turns and moves, got %d/%d", len(defaultSolution), state.Turns, state.Moves)
	}
	if state.Collected != 2 {
		t.Errorf("Expected 2 collected, got %d", state.Collected)
	}
	if box, ok := e.World().Object(pos(5, 3)); !ok || !e.World().Caps(box).Pushable {
		t.Error("Expected the box pushed to (5,3)")
	}
}

func TestEngine_MoveReport(t *testing.T) {
	e := NewEngineWithDefaults()

	r, err := e.Move(Up)
	if err != nil {
		t.Fatal(err)
	}
	if r.Duration != DefaultMovementMs*time.Millisecond {
		t.Errorf("Expected one movement duration, got %v", r.Duration)
	}
	if len(r.Frames) != 1 || r.Frames[0].Action != "push(up)" || r.Frames[0].Outcome != "made" {
		t.Errorf("Unexpected frames %+v", r.Frames)
	}

	// star at (2,3) is picked up by the push follow-up
	r, err = e.Move(Right)
	if err != nil {
		t.Fatal(err)
	}
	if r.Collected != 1 {
		t.Errorf("Expected one star collected, got %d", r.Collected)
	}
	if len(r.Frames) != 2 || r.Frames[1].Action != "collect" {
		t.Errorf("Expected push then collect, got %+v", r.Frames)
	}
}

func TestEngine_BlockedByWater(t *testing.T) {
	e := NewEngineWithDefaults()
	if _, err := e.Move(Right); err != nil {
		t.Fatal(err)
	}

	before := fingerprint(e.World())
	r, err := e.Move(Right)
	if err != nil {
		t.Fatal(err)
	}
	if r.Progress {
		t.Fatal("Expected the move into water to be blocked")
	}
	if len(r.Frames) != 1 || r.Frames[0].Reason != "unwalkable_floor" {
		t.Errorf("Expected an unwalkable_floor failure, got %+v", r.Frames)
	}
	if r.Message != DefaultLevel().Messages.Blocked {
		t.Errorf("Expected blocked message, got %q", r.Message)
	}
	assertSameWorld(t, before, fingerprint(e.World()))

	state := e.GetState()
	if state.Turns != 1 || state.Moves != 2 {
		t.Errorf("Blocked moves count as moves but not turns, got %d turns %d moves", state.Turns, state.Moves)
	}
	if e.CanMove(Right).Kind != CanMoveUnwalkableFloor {
		t.Errorf("Expected CanMove to agree, got %v", e.CanMove(Right).Kind)
	}
	for _, m := range state.PossibleMoves {
		if m == "right" {
			t.Error("right must not be a possible move")
		}
	}
}

func TestEngine_PossibleMovesIncludePush(t *testing.T) {
	e := NewEngineWithDefaults()
	for _, d := range []Direction{Up, Right, Right} {
		if _, err := e.Move(d); err != nil {
			t.Fatal(err)
		}
	}
	// player at (3,3) with the box at (4,3) and floor behind it
	if !e.CanMove(Right).OK() {
		t.Errorf("Expected the push to be possible, got %v", e.CanMove(Right).Kind)
	}
}

func TestEngine_UndoTurn(t *testing.T) {
	e := NewEngineWithDefaults()
	start := fingerprint(e.World())

	var snapshots [][]EntityState
	for _, d := range defaultSolution[:4] {
		snapshots = append(snapshots, fingerprint(e.World()))
		if _, err := e.Move(d); err != nil {
			t.Fatal(err)
		}
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		if err := e.UndoTurn(); err != nil {
			t.Fatalf("undo turn %d: %v", i, err)
		}
		assertSameWorld(t, snapshots[i], fingerprint(e.World()))
	}
	assertSameWorld(t, start, fingerprint(e.World()))

	if err := e.UndoTurn(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}
	if got := e.GetState().Turns; got != 0 {
		t.Errorf("Expected 0 turns after undoing everything, got %d", got)
	}
}

func TestEngine_UndoSingleEntry(t *testing.T) {
	e := NewEngineWithDefaults()
	for _, d := range []Direction{Up, Right} {
		if _, err := e.Move(d); err != nil {
			t.Fatal(err)
		}
	}
	if e.GetState().Collected != 1 {
		t.Fatal("Expected one star after moving onto it")
	}

	// the collect is the newest entry
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	state := e.GetState()
	if state.Collected != 0 {
		t.Errorf("Expected the star back, got %d collected", state.Collected)
	}
	if state.ControlledPos[0] != pos(2, 3) {
		t.Errorf("Expected the player to stay on the star, got %v", state.ControlledPos[0])
	}
	if state.Loop != "idle" {
		t.Errorf("Undoing a collect has no duration, got loop %q", state.Loop)
	}
}

func TestEngine_JournalReplay(t *testing.T) {
	e := NewEngineWithDefaults()
	for _, d := range []Direction{Up, Right, Right} {
		if _, err := e.Move(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.UndoTurn(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Move(Down); err != nil {
		t.Fatal(err)
	}

	journal := e.Journal()
	kinds := make([]CommandKind, len(journal))
	for i, c := range journal {
		kinds[i] = c.Kind
	}
	wantKinds := []CommandKind{CommandMove, CommandMove, CommandMove, CommandUndoTurn, CommandMove}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Fatalf("Expected %v, got %v", wantKinds, kinds)
	}

	replayed := NewEngineWithDefaults()
	if err := replayed.Replay(journal); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	assertSameWorld(t, fingerprint(e.World()), fingerprint(replayed.World()))
	if !reflect.DeepEqual(replayed.Journal(), journal) {
		t.Errorf("Replay must reproduce the journal, got %+v", replayed.Journal())
	}
	if replayed.GetState().Turns != e.GetState().Turns {
		t.Errorf("Expected %d turns, got %d", e.GetState().Turns, replayed.GetState().Turns)
	}

	bad := []Command{{Kind: CommandMove, Direction: "sideways"}}
	if err := replayed.Replay(bad); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngineWithDefaults()
	start := fingerprint(e.World())
	for _, d := range defaultSolution[:3] {
		if _, err := e.Move(d); err != nil {
			t.Fatal(err)
		}
	}

	state := e.Reset()
	assertSameWorld(t, start, fingerprint(e.World()))
	if state.Turns != 0 || state.Moves != 0 || state.UndoDepth != 0 {
		t.Errorf("Expected counters cleared, got %+v", state)
	}
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Reset clears the undo stack, got %v", err)
	}
	if got := e.Journal(); got[len(got)-1].Kind != CommandReset {
		t.Errorf("Expected reset journaled, got %v", got[len(got)-1].Kind)
	}
}

func TestEngine_BulkMove(t *testing.T) {
	e := NewEngineWithDefaults()
	reports, err := e.BulkMove(defaultSolution)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != len(defaultSolution) {
		t.Errorf("Expected %d reports, got %d", len(defaultSolution), len(reports))
	}
	if !e.IsSolved() {
		t.Error("Expected solved after bulk move")
	}

	tooMany := make([]Direction, MaxBulkMoves+1)
	if _, err := e.BulkMove(tooMany); err == nil || !strings.Contains(err.Error(), "too many moves") {
		t.Errorf("Expected a too many moves error, got %v", err)
	}
}

func TestEngine_Render(t *testing.T) {
	e := NewEngineWithDefaults()
	want := strings.Join([]string{
		"-.....-",
		"..*.o..",
		".R.~...",
		"...o.*.",
		"-.....-",
		"wall (3,0) top",
	}, "\n") + "\n"
	if got := e.Render(); got != want {
		t.Errorf("Expected\n%s\ngot\n%s", want, got)
	}
}

func TestEngine_ControlModes(t *testing.T) {
	no := false
	tests := []struct {
		name     string
		push     *bool
		indep    bool
		canRight bool
		reds     []Position
		box      Position
	}{
		{"push", nil, false, true, []Position{pos(1, 1), pos(1, 0)}, pos(2, 0)},
		{"walk", &no, false, false, []Position{pos(0, 1), pos(0, 0)}, pos(1, 0)},
		{"independent", nil, true, true, []Position{pos(1, 1), pos(0, 0)}, pos(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(&LevelConfig{
				Name:        tt.name,
				Layout:      []string{"@..*", "@o.."},
				Push:        tt.push,
				Independent: tt.indep,
			})
			if err != nil {
				t.Fatal(err)
			}
			start := fingerprint(e.World())

			if got := e.CanMove(Right).OK(); got != tt.canRight {
				t.Fatalf("Expected CanMove(right)=%v, got %v", tt.canRight, e.CanMove(Right).Kind)
			}
			report, err := e.Move(Right)
			if err != nil {
				t.Fatal(err)
			}
			if report.Progress != tt.canRight {
				t.Errorf("Expected progress=%v, got %v", tt.canRight, report.Progress)
			}

			w := e.World()
			for _, p := range tt.reds {
				id, ok := w.Object(p)
				if !ok || w.GroupOf(id).Color != Red {
					t.Errorf("Expected a red object at %v", p)
				}
			}
			if id, ok := w.Object(tt.box); !ok || !w.Caps(id).Pushable {
				t.Errorf("Expected the box at %v", tt.box)
			}

			if tt.canRight {
				if err := e.UndoTurn(); err != nil {
					t.Fatal(err)
				}
				assertSameWorld(t, start, fingerprint(e.World()))
			}
		})
	}
}
