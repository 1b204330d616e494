package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/trapped/game/engine"
)

//go:embed level.schema.json
var levelSchemaJSON string

var (
	levelSchemaOnce sync.Once
	levelSchema     *jsonschema.Schema
	levelSchemaErr  error
)

// LevelSchema returns the compiled JSON Schema for level files
func LevelSchema() (*jsonschema.Schema, error) {
	levelSchemaOnce.Do(func() {
		levelSchema, levelSchemaErr = jsonschema.CompileString("level.schema.json", levelSchemaJSON)
	})
	return levelSchema, levelSchemaErr
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// genericDocument decodes data into the plain JSON value model the schema
// validator works on. YAML documents are round-tripped through JSON.
func genericDocument(data []byte, filename string) (interface{}, error) {
	if isYAML(filename) {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateLevelData checks a level file against the schema, decodes it and
// runs the engine's structural validation.
func ValidateLevelData(data []byte, filename string) (*engine.LevelConfig, error) {
	schema, err := LevelSchema()
	if err != nil {
		return nil, fmt.Errorf("compile level schema: %w", err)
	}

	doc, err := genericDocument(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}

	level, err := engine.ParseLevel(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := engine.ValidateLevelConfig(level); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return level, nil
}
