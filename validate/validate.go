// Command validate provides a small CLI that validates the level files in a
// level directory (../levels by default). It checks:
//   - JSON or YAML structure against the level schema
//   - Layout consistency, allowed characters, walls and object overrides
//   - Presence of at least one controlled object
//   - Connectivity: every star is reachable from a controlled object over
//     walkable floor without crossing walls
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/trapped/game/config"
	"github.com/wricardo/trapped/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateLevel reads and checks one level file
func validateLevel(path string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	level, err := config.ValidateLevelData(data, path)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.info("Structure: %s (%dx%d)", level.Name, level.Width(), level.Height())

	conn := validateConnectivity(level)
	result.Errors = append(result.Errors, conn.Errors...)
	if !conn.Valid {
		result.Valid = false
	}
	return result
}

// validateConnectivity flood fills from every controlled object and reports
// stars that none of them can reach. Boxes are ignored, so a level passing
// this check can still be unsolvable; cmd/analyze answers that question.
func validateConnectivity(level *engine.LevelConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	e, err := engine.NewEngine(level)
	if err != nil {
		result.fail("Cannot validate connectivity: %v", err)
		return result
	}

	colors, err := level.ControlledColors()
	if err != nil {
		result.fail("Cannot validate connectivity: %v", err)
		return result
	}
	controlled := make(map[string]bool, len(colors))
	for _, c := range colors {
		controlled[c.String()] = true
	}

	walkable := make(map[engine.Position]bool)
	walls := make(map[string]bool)
	var starts, stars []engine.Position

	for _, ent := range e.GetState().Entities {
		pos := engine.Position{X: ent.X, Y: ent.Y}
		switch ent.Kind {
		case engine.KindFloor.String():
			if !ent.Unwalkable {
				walkable[pos] = true
			}
		case engine.KindWall.String():
			if !ent.AlwaysPassable {
				walls[wallID(pos, ent.Side)] = true
			}
		case engine.KindCollectible.String():
			stars = append(stars, pos)
		case engine.KindObject.String():
			if !controlled[ent.Group] {
				continue
			}
			if !ent.NeedsWalkableFloor || ent.PassesThroughWalls {
				result.info("Connectivity: skipped, a controlled object ignores floor or walls")
				return result
			}
			starts = append(starts, pos)
		}
	}

	if len(stars) == 0 {
		result.info("Connectivity: no stars, level is solved on load")
		return result
	}

	visited := make(map[engine.Position]bool)
	queue := append([]engine.Position(nil), starts...)
	for _, s := range starts {
		visited[s] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range engine.AllDirections {
			next := current.Step(dir)
			if visited[next] || !walkable[next] || blocked(walls, current, dir) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	unreachable := []string{}
	for _, star := range stars {
		if !visited[star] {
			unreachable = append(unreachable, fmt.Sprintf("Star at %s", star))
		}
	}

	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d/%d stars unreachable", len(unreachable), len(stars))
		for _, star := range unreachable {
			result.fail("Unreachable: %s", star)
		}
	} else {
		result.info("Connectivity: All %d stars reachable", len(stars))
	}

	return result
}

func wallID(pos engine.Position, side string) string {
	return pos.String() + side
}

// blocked reports whether a wall sits on the edge crossed by moving from
// pos in dir. Walls are stored on the top or right edge of a cell.
func blocked(walls map[string]bool, pos engine.Position, dir engine.Direction) bool {
	switch dir {
	case engine.Up:
		return walls[wallID(pos, "top")]
	case engine.Right:
		return walls[wallID(pos, "right")]
	case engine.Down:
		return walls[wallID(pos.Step(engine.Down), "top")]
	default:
		return walls[wallID(pos.Step(engine.Left), "right")]
	}
}

// levelFiles lists the JSON and YAML files of dir
func levelFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// main scans the level directory and validates each file, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	levelDir := "../levels"
	if len(os.Args) > 1 {
		levelDir = os.Args[1]
	}

	files, err := levelFiles(levelDir)
	if err != nil {
		fmt.Printf("Error finding level files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No level files found in %s\n", levelDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateLevel(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All levels are valid!")
	} else {
		fmt.Println("❌ Some levels have errors")
		os.Exit(1)
	}
}
