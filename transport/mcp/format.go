package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
)

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\nLast access: %s\n\n%s",
		session.ID, session.LevelID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState, ""))
}

func formatPositions(positions []engine.Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// formatGameState prints the status lines, then the rendering when one is
// given.
func formatGameState(state *engine.GameState, render string) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Level: %s (%dx%d)\n", state.Level, state.Width, state.Height)
	fmt.Fprintf(&result, "Controlled: %s | Stars: %d collected, %d remaining | Turns: %d | Undo depth: %d\n",
		formatPositions(state.ControlledPos), state.Collected, state.Remaining, state.Turns, state.UndoDepth)

	if len(state.PossibleMoves) > 0 {
		fmt.Fprintf(&result, "Possible moves: %s\n", strings.Join(state.PossibleMoves, ","))
	} else if !state.Solved {
		result.WriteString("Possible moves: none (undo or reset)\n")
	}

	if render != "" {
		result.WriteString("\n")
		result.WriteString(render)
		if !strings.HasSuffix(render, "\n") {
			result.WriteString("\n")
		}
	}

	if state.Solved {
		result.WriteString("\n🎉 SOLVED!")
	}
	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

func formatEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move blocked\n")
	}

	if r := result.Report; r != nil && !r.Progress {
		for _, f := range r.Frames {
			if f.Reason != "" {
				fmt.Fprintf(&b, "Blocked: %s (%s)\n", f.Reason, f.Action)
				break
			}
		}
	}

	formatEvents(&b, result.Events)
	b.WriteString("\n" + formatGameState(result.GameState, ""))
	return b.String()
}

func formatBulkMoveResult(result *service.BulkMoveResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s", result.StoppedReason)
		if result.StoppedOnMove > 0 {
			fmt.Fprintf(&b, " (move %d)", result.StoppedOnMove)
		}
		b.WriteString("\n")
	}
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	fmt.Fprintf(&b, "Start: %s → End: %s | Stars collected: %d\n",
		formatPositions(result.StartPositions), formatPositions(result.EndPositions), result.Collected)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\n")
		formatEvents(&b, result.Events)
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState, ""))
	return b.String()
}

func formatStepLine(s service.StepInfo) string {
	status := "✓"
	if !s.Progress {
		status = "✗ " + s.Reason
	}
	line := fmt.Sprintf("%d. %s → %s %s", s.Idx, s.Dir, formatPositions(s.Positions), status)
	if s.Collected > 0 {
		line += fmt.Sprintf(" +%d★", s.Collected)
	}
	if s.Solved {
		line += " solved"
	}
	return line + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History: page %d/%d (%d commands)\n", history.Page, history.TotalPages, history.TotalCommands)
	for _, cmd := range history.Commands {
		if cmd.Direction != "" {
			fmt.Fprintf(&b, "- %s %s\n", cmd.Kind, cmd.Direction)
		} else {
			fmt.Fprintf(&b, "- %s\n", cmd.Kind)
		}
	}
	if history.HasNext {
		fmt.Fprintf(&b, "More: page=%d\n", history.Page+1)
	}
	return b.String()
}

// describeCell lists the entities at (x, y) and the walls on its edges
func describeCell(state *engine.GameState, x, y int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d):\n", x, y)

	var walls []string
	floor := "none (void, nothing can stand here)"
	for _, e := range state.Entities {
		switch e.Kind {
		case "wall":
			if edge := wallEdge(e, x, y); edge != "" {
				w := edge
				if e.AlwaysPassable {
					w += " (passable)"
				}
				walls = append(walls, w)
			}
			continue
		}
		if e.X != x || e.Y != y {
			continue
		}

		switch e.Kind {
		case "floor":
			floor = "walkable"
			if e.Unwalkable {
				floor = "water (unwalkable)"
			}
		case "object":
			fmt.Fprintf(&b, "- Object #%d: %s\n", e.ID, describeObject(e))
		case "collectible":
			b.WriteString("- Star: not collected yet\n")
		}
	}

	fmt.Fprintf(&b, "- Floor: %s\n", floor)
	if len(walls) > 0 {
		fmt.Fprintf(&b, "- Walls: %s\n", strings.Join(walls, ", "))
	} else {
		b.WriteString("- Walls: none\n")
	}

	return b.String()
}

// wallEdge names the edge of (x, y) a wall sits on. Walls are stored on the
// top or right edge of their cell.
func wallEdge(e engine.EntityState, x, y int) string {
	switch {
	case e.Side == "top" && e.X == x && e.Y == y:
		return "up"
	case e.Side == "top" && e.X == x && e.Y == y-1:
		return "down"
	case e.Side == "right" && e.X == x && e.Y == y:
		return "right"
	case e.Side == "right" && e.X == x-1 && e.Y == y:
		return "left"
	}
	return ""
}

func describeObject(e engine.EntityState) string {
	group := e.Group
	if group == "" {
		group = "ungrouped"
	}
	traits := []string{group}
	if e.Pushable {
		traits = append(traits, "pushable")
	}
	if e.NeedsWalkableFloor {
		traits = append(traits, "needs walkable floor")
	}
	if e.PassesThroughWalls {
		traits = append(traits, "passes through walls")
	}
	return strings.Join(traits, ", ")
}
