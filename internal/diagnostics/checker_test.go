package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
)

func validSettings(root string) domain.Settings {
	return domain.Settings{
		APIBaseURL:    "http://localhost:3333",
		EngineBaseURL: "https://example.com/ffmpeg/b6.0",
		EngineDir:     filepath.Join(root, "engine"),
		HistoryPath:   filepath.Join(root, "data", "history.db"),
	}
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	checker := NewCheckerForTests(
		func(domain.Settings) (engine.Source, error) {
			return engine.Source{Kind: engine.SourcePath, Path: "/usr/bin/ffmpeg"}, nil
		},
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(validSettings(t.TempDir()))
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	for _, item := range report.Items {
		if item.Status != domain.DiagnosticStatusPass {
			t.Fatalf("item %s = %s, want pass", item.ID, item.Status)
		}
	}
}

// TestCheckerEngineBootstrapIsWarning checks a missing engine is not fatal.
func TestCheckerEngineBootstrapIsWarning(t *testing.T) {
	checker := NewCheckerForTests(
		func(domain.Settings) (engine.Source, error) {
			return engine.Source{Kind: engine.SourceBootstrap}, nil
		},
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(validSettings(t.TempDir()))
	if report.HasFailures {
		t.Fatalf("bootstrap should not fail report: %+v", report.Items)
	}
	item := findItem(t, report, ItemEngine)
	if item.Status != domain.DiagnosticStatusWarn || !item.Fixable {
		t.Fatalf("engine item = %+v, want fixable warning", item)
	}
}

// TestCheckerRunFailures validates failure reporting.
func TestCheckerRunFailures(t *testing.T) {
	checker := NewCheckerForTests(
		func(domain.Settings) (engine.Source, error) {
			return engine.Source{}, errors.New("configured ffmpeg path: not found")
		},
		func(string, os.FileMode) error { return errors.New("permission denied") },
		os.CreateTemp,
		os.Remove,
	)

	settings := validSettings(t.TempDir())
	settings.APIBaseURL = "localhost"
	report := checker.Run(settings)
	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	for _, id := range []string{ItemEngine, ItemEngineDir, ItemAPIURL, ItemHistoryDir} {
		if item := findItem(t, report, id); item.Status != domain.DiagnosticStatusFail {
			t.Fatalf("item %s = %s, want fail", id, item.Status)
		}
	}
}

// TestCheckerEmptyDirs validates empty path handling.
func TestCheckerEmptyDirs(t *testing.T) {
	checker := NewCheckerForTests(
		func(domain.Settings) (engine.Source, error) { return engine.Source{Kind: engine.SourceCache}, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	settings := validSettings(t.TempDir())
	settings.EngineDir = ""
	settings.HistoryPath = ""
	report := checker.Run(settings)
	if item := findItem(t, report, ItemEngineDir); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("engine dir = %s, want fail", item.Status)
	}
	if item := findItem(t, report, ItemHistoryDir); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("history dir = %s, want fail", item.Status)
	}
}

func findItem(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not found", id)
	return domain.DiagnosticItem{}
}
