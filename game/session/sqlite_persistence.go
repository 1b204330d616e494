package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	level            TEXT NOT NULL,
	level_config     TEXT,
	created_at       TEXT NOT NULL,
	last_accessed_at TEXT NOT NULL,
	journal          TEXT NOT NULL
);`

// SQLitePersistence implements SessionPersistence on a single SQLite file
type SQLitePersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
}

// OpenSQLitePersistence opens or creates the database at path
func OpenSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;", sessionsSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sessions db: %w", err)
		}
	}

	return &SQLitePersistence{db: db, configManager: configManager}, nil
}

// Close closes the database
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	data, err := newPersistedData(session)
	if err != nil {
		return err
	}

	journal, err := json.Marshal(data.Journal)
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	var level []byte
	if data.Level != nil {
		if level, err = json.Marshal(data.Level); err != nil {
			return fmt.Errorf("failed to marshal level: %w", err)
		}
	}

	_, err = sp.db.Exec(`
INSERT INTO sessions (id, level, level_config, created_at, last_accessed_at, journal)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	level = excluded.level,
	level_config = excluded.level_config,
	last_accessed_at = excluded.last_accessed_at,
	journal = excluded.journal`,
		data.ID,
		data.LevelID,
		string(level),
		data.CreatedAt.UTC().Format(time.RFC3339Nano),
		data.LastAccessedAt.UTC().Format(time.RFC3339Nano),
		string(journal),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session row and replays its journal
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	var (
		data                PersistedSessionData
		level, journal      string
		createdAt, accessed string
	)
	err := sp.db.QueryRow(
		`SELECT id, level, COALESCE(level_config, ''), created_at, last_accessed_at, journal FROM sessions WHERE id = ?`, id,
	).Scan(&data.ID, &data.LevelID, &level, &createdAt, &accessed, &journal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if data.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if data.LastAccessedAt, err = time.Parse(time.RFC3339Nano, accessed); err != nil {
		return nil, fmt.Errorf("bad last_accessed_at: %w", err)
	}
	if err := json.Unmarshal([]byte(journal), &data.Journal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal: %w", err)
	}
	if level != "" {
		data.Level = &engine.LevelConfig{}
		if err := json.Unmarshal([]byte(level), data.Level); err != nil {
			return nil, fmt.Errorf("failed to unmarshal level: %w", err)
		}
	}

	return restore(&data, sp.configManager)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	res, err := sp.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	return err == nil
}
