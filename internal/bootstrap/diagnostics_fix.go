package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"upload-ai/internal/config"
	"upload-ai/internal/diagnostics"
	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
	"upload-ai/internal/jobs"
)

const engineFetchTimeout = 30 * time.Minute

// engineFetcher downloads the ffmpeg engine into the cache.
type engineFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// newFetcher is replaced in tests.
var newFetcher = func(settings domain.Settings, logger *zap.Logger) engineFetcher {
	return engine.NewLoader(engine.LoaderOptions{
		FFmpegPath: settings.FFmpegPath,
		BaseURL:    settings.EngineBaseURL,
		CacheDir:   settings.EngineDir,
		Logger:     logger,
	})
}

// FixDiagnostic applies the remediation for one fixable diagnostic item
// and returns the refreshed report.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}
	if a.submissionActive() {
		return a.GetDiagnostics(), jobs.ErrSubmissionActive
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	var fixErr error
	switch id {
	case diagnostics.ItemEngine:
		fixErr = a.fetchEngine(settings)
	case diagnostics.ItemEngineDir:
		fixErr = ensureDir(settings.EngineDir)
	case diagnostics.ItemHistoryDir:
		fixErr = ensureDir(filepath.Dir(settings.HistoryPath))
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	if _, err := a.current(); err != nil {
		// Directories may now exist; retry wiring.
		_ = a.rebuild(settings)
	}
	return report, nil
}

// fetchEngine bootstraps ffmpeg now instead of on the first conversion.
func (a *App) fetchEngine(settings domain.Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), engineFetchTimeout)
	defer cancel()

	path, err := newFetcher(settings, a.logger).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch ffmpeg engine: %w", err)
	}
	a.logger.Info("ffmpeg engine ready", zap.String("path", path))
	return nil
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return fmt.Errorf("directory path is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
