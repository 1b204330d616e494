// Command analyze prints quick, human-readable facts about the levels in a
// level directory: dimensions, piece and star counts, and the shortest
// solution found by a breadth-first search over engine states.
//
// Usage:
//
//	analyze [levels-dir]    # defaults to ./levels
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wricardo/trapped/game/config"
	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/pkg/logger"
)

// DefaultStateLimit bounds the number of distinct states a search visits
const DefaultStateLimit = 50000

// Analysis is the outcome of analyzing one level
type Analysis struct {
	Name       string
	Width      int
	Height     int
	Stars      int
	Boxes      int
	Walls      int
	Solvable   bool
	Exhausted  bool // the state limit was hit before an answer
	Solution   []string
	StatesSeen int
}

func main() {
	logger.Init()

	dir := "levels"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		fmt.Printf("Error opening levels: %v\n", err)
		os.Exit(1)
	}
	levels, err := manager.ListLevels()
	if err != nil {
		fmt.Printf("Error listing levels: %v\n", err)
		os.Exit(1)
	}

	for _, info := range levels {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		level, err := manager.LoadLevel(info.LevelID)
		if err != nil {
			fmt.Printf("Error loading level: %v\n", err)
			continue
		}
		analysis, err := analyzeLevel(level, DefaultStateLimit)
		if err != nil {
			fmt.Printf("Error analyzing level: %v\n", err)
			continue
		}
		fmt.Print(analysis.Report())
	}
}

// Report formats the analysis for the terminal
func (a *Analysis) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", a.Name)
	fmt.Fprintf(&b, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(&b, "Stars: %d, Boxes: %d, Walls: %d\n", a.Stars, a.Boxes, a.Walls)

	switch {
	case a.Solvable:
		fmt.Fprintf(&b, "✅ Solvable in %d moves: %s\n", len(a.Solution), strings.Join(a.Solution, ","))
	case a.Exhausted:
		fmt.Fprintf(&b, "⚠️  No solution within %d states\n", a.StatesSeen)
	default:
		fmt.Fprintf(&b, "❌ Unsolvable: every reachable state explored\n")
	}
	fmt.Fprintf(&b, "States explored: %d\n", a.StatesSeen)
	return b.String()
}

// analyzeLevel counts the level's parts and searches for a shortest solution
func analyzeLevel(level *engine.LevelConfig, stateLimit int) (*Analysis, error) {
	e, err := engine.NewEngine(level)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:   level.Name,
		Width:  level.Width(),
		Height: level.Height(),
		Walls:  len(level.Walls),
	}
	for _, ent := range e.GetState().Entities {
		switch {
		case ent.Kind == engine.KindCollectible.String():
			a.Stars++
		case ent.Kind == engine.KindObject.String() && ent.Pushable:
			a.Boxes++
		}
	}

	a.Solution, a.StatesSeen, err = solve(level, stateLimit)
	switch {
	case errors.Is(err, errStateLimit):
		a.Exhausted = true
	case err != nil:
		return nil, err
	default:
		a.Solvable = a.Solution != nil
	}
	return a, nil
}

var errStateLimit = errors.New("state limit reached")

// solve runs a breadth-first search keyed on the rendered board. Each node
// is expanded by replaying its path on a fresh engine, then trying every
// direction and taking the turn back with UndoTurn. It returns a nil
// solution when no state solves the level.
func solve(level *engine.LevelConfig, stateLimit int) ([]string, int, error) {
	start, err := engine.NewEngine(level)
	if err != nil {
		return nil, 0, err
	}
	if start.IsSolved() {
		return []string{}, 1, nil
	}

	seen := map[string]bool{stateKey(start): true}
	queue := [][]engine.Direction{nil}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		e, err := engine.NewEngine(level)
		if err != nil {
			return nil, len(seen), err
		}
		for _, d := range path {
			if _, err := e.Move(d); err != nil {
				return nil, len(seen), err
			}
		}

		for _, d := range engine.AllDirections {
			report, err := e.Move(d)
			if err != nil {
				return nil, len(seen), err
			}
			if !report.Progress {
				continue
			}

			next := append(append([]engine.Direction(nil), path...), d)
			if report.Solved {
				return directionNames(next), len(seen) + 1, nil
			}

			key := stateKey(e)
			if !seen[key] {
				seen[key] = true
				if len(seen) >= stateLimit {
					return nil, len(seen), errStateLimit
				}
				queue = append(queue, next)
			}

			if err := e.UndoTurn(); err != nil {
				return nil, len(seen), err
			}
		}
	}

	return nil, len(seen), nil
}

// stateKey identifies a board; the remaining count covers stars hidden under boxes
func stateKey(e *engine.GameEngine) string {
	return fmt.Sprintf("%s%d", e.Render(), e.GetState().Remaining)
}

func directionNames(dirs []engine.Direction) []string {
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.String()
	}
	return names
}
