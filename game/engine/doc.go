// Package engine provides the core simulation of Trapped, a deterministic
// turn-based grid puzzle.
//
// The engine package implements:
//   - A spatial index with one entity per cell and kind
//   - Targets selecting entities by color group or by exact cell
//   - Feasibility checks for simultaneous group moves (walls, objects, floors)
//   - A pending-set executor that resolves push chains
//   - Actions with durations, follow-ups and exact undo
//   - A signal/reaction turn loop gated by an execution timer
//   - Level configuration loading and validation
//
// Core Types:
//
// World owns the entity arena, the component maps, the SpatialIndex and the
// UndoStack. Loop turns Signals into TargetedActions through reactions and
// drains them in FIFO order. The Engine interface, implemented by GameEngine,
// ties both to a LevelConfig and exposes snapshots and a replayable journal.
//
// Usage:
//
//	config, err := engine.LoadLevelFile("levels/first.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := gameEngine.Move(engine.Right)
//	state := gameEngine.GetState()
//
// Coordinates:
//
// Y grows upward: Up is +Y, Right is +X. Layout rows in level files are
// written top to bottom. Walls sit on the Top or Right edge of a cell; the
// Down and Left edges are stored on the neighbor below or to the left.
package engine
