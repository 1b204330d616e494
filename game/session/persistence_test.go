package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
)

type closingPersistence interface {
	SessionPersistence
	Close() error
}

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	level := createTestLevel()
	gameEngine, err := engine.NewEngine(level)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	now := time.Now()
	return &service.Session{
		ID:             id,
		LevelID:        "default",
		Engine:         gameEngine,
		Level:          level,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func persistenceBackends(t *testing.T) map[string]closingPersistence {
	t.Helper()
	plain, err := NewFilePersistence(t.TempDir(), nil, false)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	compressed, err := NewFilePersistence(t.TempDir(), nil, true)
	if err != nil {
		t.Fatalf("Failed to create compressed file persistence: %v", err)
	}
	db, err := OpenSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open sqlite persistence: %v", err)
	}
	return map[string]closingPersistence{
		"file":   plain,
		"zstd":   compressed,
		"sqlite": db,
	}
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	for name, p := range persistenceBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer p.Close()

			session := newTestSession(t, "save-load")
			if _, err := session.Engine.Move(engine.Up); err != nil {
				t.Fatal(err)
			}
			if _, err := session.Engine.Move(engine.Right); err != nil {
				t.Fatal(err)
			}
			want := session.Engine.GetState()

			if err := p.Save(session); err != nil {
				t.Fatalf("Failed to save session: %v", err)
			}
			if !p.Exists("save-load") {
				t.Fatal("Expected session to exist after save")
			}

			loaded, err := p.Load("save-load")
			if err != nil {
				t.Fatalf("Failed to load session: %v", err)
			}
			got := loaded.Engine.GetState()

			if loaded.ID != session.ID || loaded.LevelID != session.LevelID {
				t.Errorf("Expected %s/%s, got %s/%s", session.ID, session.LevelID, loaded.ID, loaded.LevelID)
			}
			if got.ControlledPos[0] != want.ControlledPos[0] {
				t.Errorf("Expected player at %v, got %v", want.ControlledPos[0], got.ControlledPos[0])
			}
			if got.Collected != want.Collected || got.Turns != want.Turns || got.UndoDepth != want.UndoDepth {
				t.Errorf("Restored state differs: got %+v, want %+v", got, want)
			}
			if len(loaded.Engine.Journal()) != 2 {
				t.Errorf("Expected 2 journaled commands, got %d", len(loaded.Engine.Journal()))
			}
			if !loaded.CreatedAt.Equal(session.CreatedAt) {
				t.Errorf("Expected CreatedAt %v, got %v", session.CreatedAt, loaded.CreatedAt)
			}
		})
	}
}

func TestPersistence_RestoredSessionCanUndo(t *testing.T) {
	for name, p := range persistenceBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer p.Close()

			session := newTestSession(t, "undo")
			session.Engine.Move(engine.Up)
			if err := p.Save(session); err != nil {
				t.Fatal(err)
			}

			loaded, err := p.Load("undo")
			if err != nil {
				t.Fatal(err)
			}
			if err := loaded.Engine.UndoTurn(); err != nil {
				t.Fatalf("Expected undo history to be rebuilt, got %v", err)
			}
			if pos := loaded.Engine.GetState().ControlledPos[0]; pos != (engine.Position{X: 1, Y: 2}) {
				t.Errorf("Expected player back at start, got %v", pos)
			}
		})
	}
}

func TestPersistence_Overwrite(t *testing.T) {
	for name, p := range persistenceBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer p.Close()

			session := newTestSession(t, "overwrite")
			if err := p.Save(session); err != nil {
				t.Fatal(err)
			}
			session.Engine.Move(engine.Up)
			if err := p.Save(session); err != nil {
				t.Fatal(err)
			}

			loaded, err := p.Load("overwrite")
			if err != nil {
				t.Fatal(err)
			}
			if pos := loaded.Engine.GetState().ControlledPos[0]; pos != (engine.Position{X: 1, Y: 3}) {
				t.Errorf("Expected latest save to win, got player at %v", pos)
			}
		})
	}
}

func TestPersistence_DeleteAndList(t *testing.T) {
	for name, p := range persistenceBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer p.Close()

			for _, id := range []string{"c", "a", "b"} {
				if err := p.Save(newTestSession(t, id)); err != nil {
					t.Fatal(err)
				}
			}

			ids, err := p.ListAll()
			if err != nil {
				t.Fatalf("Failed to list sessions: %v", err)
			}
			if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
				t.Errorf("Expected [a b c], got %v", ids)
			}

			if err := p.Delete("b"); err != nil {
				t.Fatalf("Failed to delete: %v", err)
			}
			if p.Exists("b") {
				t.Error("Expected b to be gone")
			}
			if err := p.Delete("b"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
			}
			if _, err := p.Load("b"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Expected ErrSessionNotFound on load, got %v", err)
			}
		})
	}
}

func TestFilePersistence_FileStructure(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		file     string
		absent   string
	}{
		{"plain json", false, "struct.json", "struct.json.zst"},
		{"zstd", true, "struct.json.zst", "struct.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fp, err := NewFilePersistence(dir, nil, tt.compress)
			if err != nil {
				t.Fatal(err)
			}
			defer fp.Close()

			if err := fp.Save(newTestSession(t, "struct")); err != nil {
				t.Fatal(err)
			}
			if _, err := os.Stat(filepath.Join(dir, tt.file)); err != nil {
				t.Errorf("Expected %s to exist: %v", tt.file, err)
			}
			if _, err := os.Stat(filepath.Join(dir, tt.absent)); !os.IsNotExist(err) {
				t.Errorf("Expected %s to be absent", tt.absent)
			}
		})
	}
}

func TestFilePersistence_SwitchingFormats(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFilePersistence(dir, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	defer plain.Close()
	compressed, err := NewFilePersistence(dir, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	defer compressed.Close()

	session := newTestSession(t, "switch")
	session.Engine.Move(engine.Up)
	if err := plain.Save(session); err != nil {
		t.Fatal(err)
	}

	// a compressed store still reads plain files
	loaded, err := compressed.Load("switch")
	if err != nil {
		t.Fatalf("Failed to read plain file: %v", err)
	}
	if err := compressed.Save(loaded); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "switch.json")); !os.IsNotExist(err) {
		t.Error("Expected plain copy to be removed after compressed save")
	}

	ids, _ := plain.ListAll()
	if len(ids) != 1 || ids[0] != "switch" {
		t.Errorf("Expected [switch], got %v", ids)
	}
	back, err := plain.Load("switch")
	if err != nil {
		t.Fatalf("Failed to read compressed file: %v", err)
	}
	if pos := back.Engine.GetState().ControlledPos[0]; pos != (engine.Position{X: 1, Y: 3}) {
		t.Errorf("Expected player at (1,3), got %v", pos)
	}
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := fp.Load("bad"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected unmarshal error, got %v", err)
	}
}

func TestRestore_FallsBackToLevelManager(t *testing.T) {
	levels := &stubLevels{level: createTestLevel()}
	data := &PersistedSessionData{
		ID:      "legacy",
		LevelID: "default",
		Journal: []engine.Command{{Kind: engine.CommandMove, Direction: "up"}},
	}

	session, err := restore(data, levels)
	if err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	if levels.loaded != "default" {
		t.Errorf("Expected level manager to load 'default', got %q", levels.loaded)
	}
	if pos := session.Engine.GetState().ControlledPos[0]; pos != (engine.Position{X: 1, Y: 3}) {
		t.Errorf("Expected journal replayed, player at %v", pos)
	}

	if _, err := restore(data, nil); err == nil {
		t.Error("Expected error without level or level manager")
	}
}

type stubLevels struct {
	level  *engine.LevelConfig
	loaded string
}

func (s *stubLevels) LoadLevel(id string) (*engine.LevelConfig, error) {
	s.loaded = id
	return s.level, nil
}

func (s *stubLevels) ListLevels() ([]*service.LevelInfo, error) { return nil, nil }

func (s *stubLevels) GetDefault() *engine.LevelConfig { return s.level }

func (s *stubLevels) SaveLevel(name string, level *engine.LevelConfig) error { return nil }
