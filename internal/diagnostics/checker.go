package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"upload-ai/internal/api"
	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
)

// Diagnostic item ids.
const (
	ItemEngine     = "engine"
	ItemEngineDir  = "engine_dir"
	ItemAPIURL     = "api_url"
	ItemHistoryDir = "history_dir"
)

// Checker validates the transcoding engine, configured URLs and required
// filesystem paths.
type Checker struct {
	locate     func(domain.Settings) (engine.Source, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		locate:     locateEngine,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkEngine(settings),
		c.checkWritableDir(ItemEngineDir, "Engine cache", settings.EngineDir),
		checkAPIURL(settings.APIBaseURL),
		c.checkWritableDir(ItemHistoryDir, "History database", historyDir(settings.HistoryPath)),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkEngine reports where ffmpeg will come from.
func (c *Checker) checkEngine(settings domain.Settings) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   ItemEngine,
		Name: "ffmpeg engine",
	}

	src, err := c.locate(settings)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Fix or clear the ffmpeg path in settings to use the bundled engine."
		return item
	}

	switch src.Kind {
	case engine.SourceBootstrap:
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("ffmpeg will be downloaded on first conversion from %s", settings.EngineBaseURL)
		item.Hint = "Download it now to avoid waiting during the first upload."
		item.Fixable = true
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s (%s)", src.Path, src.Kind)
	}
	return item
}

// checkAPIURL validates the configured service base URL.
func checkAPIURL(raw string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   ItemAPIURL,
		Name: "API base URL",
	}
	if err := api.ValidateBaseURL(raw); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Set an absolute http(s) URL such as http://localhost:3333."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = raw
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: name,
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = name + " directory is empty."
		item.Hint = "Restore the default in settings."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		item.Fixable = true
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

func historyDir(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Dir(path)
}

func locateEngine(settings domain.Settings) (engine.Source, error) {
	return engine.NewLoader(engine.LoaderOptions{
		FFmpegPath: settings.FFmpegPath,
		BaseURL:    settings.EngineBaseURL,
		CacheDir:   settings.EngineDir,
	}).Locate()
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	locate func(domain.Settings) (engine.Source, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		locate:     locate,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
