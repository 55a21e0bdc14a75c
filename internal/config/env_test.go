package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestApplyEnvOverridesNonEmptyValues checks env precedence over settings.
func TestApplyEnvOverridesNonEmptyValues(t *testing.T) {
	env := map[string]string{
		EnvAPIBaseURL: " https://api.example.com/ ",
		EnvAPIToken:   "token-1",
		EnvLanguage:   "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	got := applyEnvFrom(DefaultSettings(), lookup)
	if got.APIBaseURL != "https://api.example.com" {
		t.Fatalf("api base url = %q", got.APIBaseURL)
	}
	if got.APIToken != "token-1" {
		t.Fatalf("api token = %q, want token-1", got.APIToken)
	}
	if got.Language != "en" {
		t.Fatalf("language = %q, empty override should keep en", got.Language)
	}
	if got.FFmpegPath != "" {
		t.Fatalf("ffmpeg path = %q, want empty", got.FFmpegPath)
	}
}

// TestLoadDotEnvSkipsMissingFiles checks .env loading semantics.
func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(EnvFFmpegPath+"=/opt/ffmpeg/bin/ffmpeg\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvFFmpegPath, "")
	os.Unsetenv(EnvFFmpegPath)

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := ApplyEnv(DefaultSettings()).FFmpegPath; got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg path = %q", got)
	}
}
