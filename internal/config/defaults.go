package config

import (
	"os"
	"path/filepath"

	"upload-ai/internal/domain"
)

const (
	// DefaultAPIBaseURL points at the upload-ai API started locally.
	DefaultAPIBaseURL = "http://localhost:3333"
	// DefaultEngineBaseURL is the pinned release the engine bootstrap downloads from.
	DefaultEngineBaseURL = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0"

	defaultRequestTimeoutSeconds = 300
)

// AppDir returns the per-user application directory.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".upload-ai")
}

// SettingsPath returns the default settings file location.
func SettingsPath() string {
	return filepath.Join(AppDir(), "settings.json")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	appDir := AppDir()
	return domain.Settings{
		APIBaseURL:            DefaultAPIBaseURL,
		EngineBaseURL:         DefaultEngineBaseURL,
		EngineDir:             filepath.Join(appDir, "engine"),
		Language:              "en",
		RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		HistoryPath:           filepath.Join(appDir, "history.db"),
	}
}
