package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"upload-ai/internal/diagnostics"
	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
	"upload-ai/internal/services"
)

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "/cache/ffmpeg", nil
}

func newFixApp(t *testing.T, settings domain.Settings, fetcher *fakeFetcher) *App {
	t.Helper()
	prev := newFetcher
	newFetcher = func(domain.Settings, *zap.Logger) engineFetcher { return fetcher }
	t.Cleanup(func() { newFetcher = prev })

	return &App{
		Store: &fakeStore{settings: settings},
		checker: diagnostics.NewCheckerForTests(
			func(domain.Settings) (engine.Source, error) {
				return engine.Source{Kind: engine.SourceBootstrap}, nil
			},
			os.MkdirAll,
			os.CreateTemp,
			os.Remove,
		),
		logger: zap.NewNop(),
		build: func(domain.Settings, services.Hooks) (*services.Services, error) {
			return nil, errors.New("not wired")
		},
	}
}

// TestFixDiagnosticFetchesEngine ensures the engine item bootstraps ffmpeg now.
func TestFixDiagnosticFetchesEngine(t *testing.T) {
	fetcher := &fakeFetcher{}
	app := newFixApp(t, testSettings(t.TempDir()), fetcher)

	report, err := app.FixDiagnostic(diagnostics.ItemEngine)
	if err != nil {
		t.Fatalf("fix engine: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	if len(report.Items) == 0 {
		t.Fatal("expected refreshed report")
	}
}

// TestFixDiagnosticReturnsFetchError ensures download failures are surfaced with a report.
func TestFixDiagnosticReturnsFetchError(t *testing.T) {
	app := newFixApp(t, testSettings(t.TempDir()), &fakeFetcher{err: errors.New("offline")})

	report, err := app.FixDiagnostic(diagnostics.ItemEngine)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if len(report.Items) == 0 {
		t.Fatal("expected report alongside error")
	}
}

// TestFixDiagnosticCreatesDirectories ensures directory items create missing paths.
func TestFixDiagnosticCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	settings := testSettings(root)
	settings.EngineDir = filepath.Join(root, "nested", "engine")
	settings.HistoryPath = filepath.Join(root, "data", "db", "history.db")
	app := newFixApp(t, settings, &fakeFetcher{})

	if _, err := app.FixDiagnostic(diagnostics.ItemEngineDir); err != nil {
		t.Fatalf("fix engine dir: %v", err)
	}
	if _, err := os.Stat(settings.EngineDir); err != nil {
		t.Fatalf("stat engine dir: %v", err)
	}

	if _, err := app.FixDiagnostic(diagnostics.ItemHistoryDir); err != nil {
		t.Fatalf("fix history dir: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(settings.HistoryPath)); err != nil {
		t.Fatalf("stat history dir: %v", err)
	}
}

// TestFixDiagnosticRejectsUnknownItems validates item id handling.
func TestFixDiagnosticRejectsUnknownItems(t *testing.T) {
	app := newFixApp(t, testSettings(t.TempDir()), &fakeFetcher{})

	if _, err := app.FixDiagnostic(""); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := app.FixDiagnostic(diagnostics.ItemAPIURL); err == nil {
		t.Fatal("expected error for non-fixable item")
	}
}
