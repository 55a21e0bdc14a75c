package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"upload-ai/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the settings file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
// Fields absent from the file keep their default values.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	cfg := DefaultSettings()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return Normalize(cfg), nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(Normalize(cfg), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// Normalize trims user inputs and restores defaults for empty required fields.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	cfg.EngineBaseURL = strings.TrimRight(strings.TrimSpace(cfg.EngineBaseURL), "/")
	cfg.EngineDir = strings.TrimSpace(cfg.EngineDir)
	cfg.FFmpegPath = strings.TrimSpace(cfg.FFmpegPath)
	cfg.Language = strings.TrimSpace(cfg.Language)
	cfg.HistoryPath = strings.TrimSpace(cfg.HistoryPath)

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaults.APIBaseURL
	}
	if cfg.EngineBaseURL == "" {
		cfg.EngineBaseURL = defaults.EngineBaseURL
	}
	if cfg.EngineDir == "" {
		cfg.EngineDir = defaults.EngineDir
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = defaults.HistoryPath
	}
	if cfg.RequestTimeoutSeconds < 0 {
		cfg.RequestTimeoutSeconds = 0
	}
	return cfg
}
