package service

import (
	"time"

	"github.com/wricardo/trapped/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	LevelID        string              `json:"level_id"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state"`
	Level          *engine.LevelConfig `json:"level"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool               `json:"success"`
	GameState *engine.GameState  `json:"game_state"`
	Message   string             `json:"message"`
	Report    *engine.TurnReport `json:"report,omitempty"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked_bumped_into|blocked_no_floor|blocked_unwalkable_floor|solved|invalid_direction
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot of the controlled objects
	StartPositions []engine.Position `json:"start_positions"`
	EndPositions   []engine.Position `json:"end_positions"`
	Collected      int               `json:"collected"`

	// Per-move trace, only for this call
	Steps []StepInfo `json:"steps,omitempty"`

	Solved        bool     `json:"solved"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx       int               `json:"idx"`
	Dir       string            `json:"dir"`
	Progress  bool              `json:"progress"`
	Positions []engine.Position `json:"positions"`
	Collected int               `json:"collected,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Solved    bool              `json:"solved,omitempty"`
}

// Event types
const (
	EventMove      = "move"
	EventBlocked   = "blocked"
	EventCollected = "collected"
	EventSolved    = "solved"
	EventUndo      = "undo"
	EventReset     = "reset"
	EventCreated   = "session_created"
	EventDeleted   = "session_deleted"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string            `json:"id" msgpack:"id"`
	Type      string            `json:"type" msgpack:"type"`
	SessionID string            `json:"session_id" msgpack:"session_id"`
	Message   string            `json:"message" msgpack:"message"`
	Timestamp time.Time         `json:"timestamp" msgpack:"timestamp"`
	Positions []engine.Position `json:"positions,omitempty" msgpack:"positions,omitempty"`
}

// HistoryOptions configures journal retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains a page of the session journal
type HistoryResponse struct {
	Commands      []engine.Command `json:"commands"`
	TotalCommands int              `json:"total_commands"`
	Page          int              `json:"page"`
	PageSize      int              `json:"page_size"`
	TotalPages    int              `json:"total_pages"`
	HasNext       bool             `json:"has_next"`
	HasPrevious   bool             `json:"has_previous"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename     string `json:"filename"`
	LevelID      string `json:"level_id"` // The identifier to use for session creation
	Name         string `json:"name"`     // Display name
	Description  string `json:"description"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Collectibles int    `json:"collectibles"`
}
