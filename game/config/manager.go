package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
	"github.com/wricardo/trapped/pkg/logger"
)

var (
	ErrConfigNotFound = errors.New("level not found")
	ErrInvalidConfig  = errors.New("invalid level file")
)

// levelExtensions are tried in order when a level name has no extension
var levelExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	defaultLevel *engine.LevelConfig
	levels       map[string]*engine.LevelConfig
	mu           sync.RWMutex
	log          *logrus.Entry
}

// NewManager creates a new level manager for levelDir
func NewManager(levelDir string) (*Manager, error) {
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.LevelConfig),
		log:      logger.Component("config"),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// levelID strips a known extension from a level name
func levelID(name string) string {
	ext := filepath.Ext(name)
	for _, known := range levelExtensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// resolve finds the file backing a level name
func (m *Manager) resolve(name string) (string, error) {
	if filepath.Base(name) != name || name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: bad level name %q", ErrConfigNotFound, name)
	}
	if levelID(name) != name {
		path := filepath.Join(m.levelDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", ErrConfigNotFound
		}
		return path, nil
	}
	for _, ext := range levelExtensions {
		path := filepath.Join(m.levelDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadLevel loads a level by name. The name may omit the extension; .json,
// .yaml and .yml are tried in that order.
func (m *Manager) LoadLevel(name string) (*engine.LevelConfig, error) {
	id := levelID(name)

	m.mu.RLock()
	if level, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*engine.LevelConfig, error) {
	id := levelID(name)
	if level, exists := m.levels[id]; exists {
		return level, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	level, err := ValidateLevelData(data, path)
	if err != nil {
		return nil, err
	}

	m.levels[id] = level
	return level, nil
}

// ListLevels returns information about every valid level in the directory
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	seen := make(map[string]bool)
	var levels []*service.LevelInfo

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := levelID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}

		level, err := m.LoadLevel(entry.Name())
		if err != nil {
			m.log.WithError(err).WithField("file", entry.Name()).Warn("skipping invalid level")
			continue
		}
		seen[id] = true

		levels = append(levels, levelInfo(entry.Name(), id, level))
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

func levelInfo(filename, id string, level *engine.LevelConfig) *service.LevelInfo {
	info := &service.LevelInfo{
		Filename:    filename,
		LevelID:     id,
		Name:        level.Name,
		Description: level.Description,
		Width:       level.Width(),
		Height:      level.Height(),
	}
	for _, row := range level.Layout {
		info.Collectibles += strings.Count(row, "*")
	}
	return info
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.LevelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// SetDefault sets the default level by name
func (m *Manager) SetDefault(name string) error {
	level, err := m.LoadLevel(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
	return nil
}

// RefreshCache drops every cached level and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelConfig)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// loadDefaultLevel picks "default", then the first valid level, and falls
// back to the built-in level when the directory has none.
func (m *Manager) loadDefaultLevel() error {
	level, err := m.LoadLevel("default")
	if err != nil {
		levels, listErr := m.ListLevels()
		if listErr != nil || len(levels) == 0 {
			m.setDefault(engine.DefaultLevel())
			m.log.Info("no levels found, using the built-in level")
			return nil
		}

		level, err = m.LoadLevel(levels[0].Filename)
		if err != nil {
			m.setDefault(engine.DefaultLevel())
			return nil
		}
	}

	m.setDefault(level)
	return nil
}

func (m *Manager) setDefault(level *engine.LevelConfig) {
	m.mu.Lock()
	m.defaultLevel = level
	m.mu.Unlock()
}

// SaveLevel validates a level and writes it to disk. Names ending in .yaml
// or .yml are written as YAML, everything else as JSON.
func (m *Manager) SaveLevel(name string, level *engine.LevelConfig) error {
	if err := engine.ValidateLevelConfig(level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	id := levelID(name)
	if filepath.Base(id) != id || id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w: bad level name %q", ErrInvalidConfig, name)
	}

	var (
		data     []byte
		err      error
		filename string
	)
	if isYAML(name) {
		filename = name
		data, err = yaml.Marshal(level)
	} else {
		filename = id + ".json"
		data, err = json.MarshalIndent(level, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// a level saved under a new format replaces the old file
	for _, ext := range levelExtensions {
		if old := id + ext; old != filename {
			os.Remove(filepath.Join(m.levelDir, old))
		}
	}
	if err := os.WriteFile(filepath.Join(m.levelDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.levels[id] = level
	m.log.WithField("level", id).Info("level saved")
	return nil
}
