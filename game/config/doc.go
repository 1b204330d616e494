// Package config loads and stores Trapped level files.
//
// Levels live in a single directory as JSON (.json) or YAML (.yaml, .yml)
// documents. Every file is checked against an embedded JSON Schema before it
// is decoded, then validated structurally by the engine.
//
// Level Format:
//
//	name: Two boxes
//	layout:            # top row first
//	  - "-.....-"
//	  - ".@.o.*."
//	walls:
//	  - {x: 3, y: 0, side: top}
//	objects:
//	  - {x: 3, y: 0, pushable: false}
//
// Layout characters: '.' floor, '~' water, '-' or ' ' empty, '*' star,
// 'o' box, '@' or 'R' red object, 'x' red object passing through walls, and
// 'B', 'G', 'Y', 'P', 'C' for the other colors.
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.LoadLevel("first")
//	levels, err := manager.ListLevels()
//
// When the directory holds no usable level the built-in engine level becomes
// the default.
package config
