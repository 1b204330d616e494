package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/trapped/game/service"
)

const (
	jsonExt = ".json"
	zstdExt = ".json.zst"
)

// FilePersistence implements SessionPersistence with one file per session.
// With compression enabled files are written as zstd frames; both forms are
// readable either way.
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
	compress      bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager, compress bool) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
		compress:      compress,
		enc:           enc,
		dec:           dec,
	}, nil
}

// Close releases the codec resources
func (fp *FilePersistence) Close() error {
	fp.dec.Close()
	return fp.enc.Close()
}

// Save persists a session
func (fp *FilePersistence) Save(session *service.Session) error {
	data, err := newPersistedData(session)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	path, stale := fp.filePath(session.ID, jsonExt), fp.filePath(session.ID, zstdExt)
	if fp.compress {
		jsonData = fp.enc.EncodeAll(jsonData, nil)
		path, stale = stale, path
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	// switching formats must not leave an older copy behind
	os.Remove(stale)

	return nil
}

// Load retrieves a session and replays its journal
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	raw, err := fp.read(id)
	if err != nil {
		return nil, err
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	return restore(&data, fp.configManager)
}

func (fp *FilePersistence) read(id string) ([]byte, error) {
	if raw, err := os.ReadFile(fp.filePath(id, zstdExt)); err == nil {
		out, err := fp.dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress session file: %w", err)
		}
		return out, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	raw, err := os.ReadFile(fp.filePath(id, jsonExt))
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return raw, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	for _, ext := range []string{jsonExt, zstdExt} {
		if err := os.Remove(fp.filePath(id, ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	seen := make(map[string]bool)
	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		var id string
		switch {
		case strings.HasSuffix(name, zstdExt):
			id = strings.TrimSuffix(name, zstdExt)
		case strings.HasSuffix(name, jsonExt):
			id = strings.TrimSuffix(name, jsonExt)
		default:
			continue
		}
		if !seen[id] {
			seen[id] = true
			sessionIDs = append(sessionIDs, id)
		}
	}

	sort.Strings(sessionIDs)
	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	for _, ext := range []string{jsonExt, zstdExt} {
		if _, err := os.Stat(fp.filePath(id, ext)); err == nil {
			return true
		}
	}
	return false
}

func (fp *FilePersistence) filePath(id, ext string) string {
	return filepath.Join(fp.sessionsDir, id+ext)
}
