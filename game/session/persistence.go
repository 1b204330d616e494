package session

import (
	"fmt"
	"time"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The world itself is
// not stored; replaying the journal on the level rebuilds it exactly.
type PersistedSessionData struct {
	ID             string              `json:"id"`
	LevelID        string              `json:"level_id"`
	Level          *engine.LevelConfig `json:"level,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Journal        []engine.Command    `json:"journal"`
}

func newPersistedData(session *service.Session) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	return &PersistedSessionData{
		ID:             session.ID,
		LevelID:        session.LevelID,
		Level:          session.Level,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Journal:        session.Engine.Journal(),
	}, nil
}

// restore rebuilds a live session. The embedded level wins; older records
// without one fall back to the level manager.
func restore(data *PersistedSessionData, levels service.ConfigManager) (*service.Session, error) {
	level := data.Level
	if level == nil {
		if levels == nil {
			return nil, fmt.Errorf("session %s has no level and no level manager is configured", data.ID)
		}
		var err error
		level, err = levels.LoadLevel(data.LevelID)
		if err != nil {
			return nil, fmt.Errorf("failed to load level '%s': %w", data.LevelID, err)
		}
	}

	gameEngine, err := engine.NewEngine(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := gameEngine.Replay(data.Journal); err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		LevelID:        data.LevelID,
		Engine:         gameEngine,
		Level:          level,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
