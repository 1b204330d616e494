package main

import (
	"os"
	"strings"
	"testing"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestAnalyzeLevel_Default(t *testing.T) {
	a, err := analyzeLevel(engine.DefaultLevel(), DefaultStateLimit)
	if err != nil {
		t.Fatalf("analyzeLevel failed: %v", err)
	}

	if a.Width != 7 || a.Height != 5 {
		t.Errorf("Expected 7x5, got %dx%d", a.Width, a.Height)
	}
	if a.Stars != 2 || a.Boxes != 2 || a.Walls != 1 {
		t.Errorf("Unexpected counts: stars=%d boxes=%d walls=%d", a.Stars, a.Boxes, a.Walls)
	}
	if !a.Solvable {
		t.Fatalf("Expected the default level to be solvable, report:\n%s", a.Report())
	}
	if len(a.Solution) != 7 {
		t.Errorf("Expected a 7 move solution, got %v", a.Solution)
	}

	// replaying the answer solves a fresh game
	e, err := engine.NewEngine(engine.DefaultLevel())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range a.Solution {
		dir, err := engine.ParseDirection(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Move(dir); err != nil {
			t.Fatal(err)
		}
	}
	if !e.IsSolved() {
		t.Errorf("Solution %v did not solve the level", a.Solution)
	}
}

func TestAnalyzeLevel_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		layout    []string
		limit     int
		solvable  bool
		exhausted bool
		moves     int
	}{
		{"one step", []string{"@*"}, DefaultStateLimit, true, false, 1},
		{"water in the way", []string{"@~*"}, DefaultStateLimit, false, false, 0},
		{"state limit", []string{"@....", ".....", "....*"}, 2, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := analyzeLevel(&engine.LevelConfig{Name: tt.name, Layout: tt.layout}, tt.limit)
			if err != nil {
				t.Fatalf("analyzeLevel failed: %v", err)
			}
			if a.Solvable != tt.solvable || a.Exhausted != tt.exhausted {
				t.Errorf("Expected solvable=%v exhausted=%v, got %+v", tt.solvable, tt.exhausted, a)
			}
			if tt.solvable && len(a.Solution) != tt.moves {
				t.Errorf("Expected %d moves, got %v", tt.moves, a.Solution)
			}
		})
	}
}

func TestReport(t *testing.T) {
	a := &Analysis{Name: "demo", Width: 3, Height: 1, Stars: 1, Solvable: true, Solution: []string{"right", "right"}, StatesSeen: 3}
	report := a.Report()
	for _, want := range []string{"Name: demo", "Grid Size: 3 x 1", "Solvable in 2 moves: right,right", "States explored: 3"} {
		if !strings.Contains(report, want) {
			t.Errorf("Report missing %q:\n%s", want, report)
		}
	}

	a = &Analysis{Name: "stuck"}
	if !strings.Contains(a.Report(), "Unsolvable") {
		t.Errorf("Expected an unsolvable report, got:\n%s", a.Report())
	}
}
