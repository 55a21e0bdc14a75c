package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"upload-ai/internal/domain"
)

// Environment variables that override persisted settings.
const (
	EnvAPIBaseURL = "UPLOAD_AI_API_URL"
	EnvAPIToken   = "UPLOAD_AI_API_TOKEN"
	EnvFFmpegPath = "UPLOAD_AI_FFMPEG_PATH"
	EnvLanguage   = "UPLOAD_AI_LANGUAGE"
)

// EnvLogLevel selects the zap level for the desktop app.
const EnvLogLevel = "UPLOAD_AI_LOG_LEVEL"

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays non-empty environment overrides on top of cfg.
func ApplyEnv(cfg domain.Settings) domain.Settings {
	return applyEnvFrom(cfg, os.LookupEnv)
}

func applyEnvFrom(cfg domain.Settings, lookup func(string) (string, bool)) domain.Settings {
	set := func(key string, dst *string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}

	set(EnvAPIBaseURL, &cfg.APIBaseURL)
	set(EnvAPIToken, &cfg.APIToken)
	set(EnvFFmpegPath, &cfg.FFmpegPath)
	set(EnvLanguage, &cfg.Language)
	return Normalize(cfg)
}
