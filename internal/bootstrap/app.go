package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"upload-ai/internal/config"
	"upload-ai/internal/diagnostics"
	"upload-ai/internal/domain"
	"upload-ai/internal/form"
	"upload-ai/internal/jobs"
	"upload-ai/internal/labels"
	"upload-ai/internal/logging"
	"upload-ai/internal/preview"
	"upload-ai/internal/services"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// Runtime event names pushed to the front end.
const (
	EventSubmission    = "submission:event"
	EventVideoUploaded = "video:uploaded"
)

const defaultHistoryLimit = 50

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Videos (*.mp4)",
		Pattern:     "*.mp4",
	},
}

// ErrServicesUnavailable is returned by form operations when the current
// settings could not be wired.
var ErrServicesUnavailable = errors.New("services are not available")

type buildFunc func(domain.Settings, services.Hooks) (*services.Services, error)

type emitFunc func(ctx context.Context, name string, data ...interface{})

// App wires configuration, the upload form and UI runtime callbacks.
type App struct {
	Store       config.Store
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	logger      *zap.Logger
	build       buildFunc
	emit        emitFunc

	mu         sync.Mutex
	settings   domain.Settings
	services   *services.Services
	buildErr   error
	cancel     context.CancelFunc
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	if err := config.LoadDotEnv(".env", filepath.Join(config.AppDir(), ".env")); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: os.Getenv(config.EnvLogLevel)})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store := config.NewJSONStore(config.SettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	app := &App{
		Store:   store,
		assets:  assets,
		checker: diagnostics.NewChecker(),
		logger:  logging.Component(logger, "app"),
		emit:    wailsruntime.EventsEmit,
	}
	app.build = func(settings domain.Settings, hooks services.Hooks) (*services.Services, error) {
		return services.Build(settings, logger, hooks)
	}

	app.settings = settings
	app.Diagnostics = app.checker.Run(settings)
	if err := app.rebuild(settings); err != nil {
		app.logger.Warn("services unavailable until settings are fixed", zap.Error(err))
	}
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{
		Handler: a.previewHandler(),
	}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		mux := http.NewServeMux()
		mux.Handle(preview.Prefix, a.previewHandler())
		mux.Handle("/", http.FileServer(http.Dir("./frontend")))
		assetOptions.Handler = mux
	}

	return wails.Run(&options.App{
		Title:       "upload.ai",
		Width:       980,
		Height:      720,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown cancels a running submission and releases the form, the engine
// and the history store.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	cancel := a.cancel
	svc := a.services
	a.services = nil
	a.runtimeCtx = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if svc != nil {
		if err := svc.Close(); err != nil {
			a.logger.Warn("release services", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings with
// environment overrides applied.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, rewires the form and
// refreshes diagnostics. It refuses while a submission runs.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	if a.submissionActive() {
		return domain.Settings{}, jobs.ErrSubmissionActive
	}

	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	if err := a.rebuild(normalized); err != nil {
		return normalized, err
	}
	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns startup checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.GetSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// FormLabels returns the localized static form strings.
func (a *App) FormLabels() map[string]string {
	return labels.Form(a.language())
}

// PickVideo opens a native dialog filtered to MP4 files and selects the
// chosen file. A cancelled dialog leaves the form untouched.
func (a *App) PickVideo() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   labels.Text(a.language(), labels.KeySelectVideo),
		Filters: videoDialogFilter,
	})
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := a.SelectVideo(path); err != nil {
		return "", err
	}
	return path, nil
}

// SelectVideo replaces the held video with path.
func (a *App) SelectVideo(path string) error {
	svc, err := a.current()
	if err != nil {
		return err
	}
	return svc.Form.SelectFiles([]string{path})
}

// PreviewURL returns the live preview URL of the selected video or "".
func (a *App) PreviewURL() string {
	svc, err := a.current()
	if err != nil {
		return ""
	}
	return svc.Form.PreviewURL()
}

// CurrentSubmission returns the current submission snapshot.
func (a *App) CurrentSubmission() domain.Submission {
	svc, err := a.current()
	if err != nil {
		return domain.Submission{Status: domain.StatusWaiting}
	}
	return svc.Form.Status()
}

// StatusLabel renders the submit button text for the current state.
func (a *App) StatusLabel() string {
	return labels.Status(a.language(), a.CurrentSubmission())
}

// CanSubmit reports whether the submit control is enabled.
func (a *App) CanSubmit() bool {
	svc, err := a.current()
	if err != nil {
		return false
	}
	return svc.Form.CanSubmit()
}

// StartSubmission validates the form and runs the submission
// asynchronously. Progress is pushed as runtime events.
func (a *App) StartSubmission(prompt string) error {
	svc, err := a.current()
	if err != nil {
		return err
	}
	if _, ok := svc.Form.SelectedVideo(); !ok {
		return form.ErrNoVideoSelected
	}
	if svc.Form.Status().Status == domain.StatusSuccess {
		return jobs.ErrAlreadySubmitted
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	if a.cancel != nil || svc.Form.Status().Status.Active() {
		a.mu.Unlock()
		cancel()
		return jobs.ErrSubmissionActive
	}
	a.cancel = cancel
	a.mu.Unlock()

	go a.runSubmission(ctx, svc, prompt)
	return nil
}

// CancelSubmission cancels the running submission, if any.
func (a *App) CancelSubmission() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoActiveSubmission
	}
	cancel()
	return nil
}

// SubmissionEvents returns all events with sequence greater than sinceSeq.
func (a *App) SubmissionEvents(sinceSeq int64) []jobs.Event {
	svc, err := a.current()
	if err != nil {
		return nil
	}
	return svc.Form.Events(sinceSeq)
}

// History returns the most recent uploads, newest first.
func (a *App) History(limit int) ([]domain.HistoryEntry, error) {
	svc, err := a.current()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return svc.History.List(context.Background(), limit)
}

// runSubmission executes one form submission and clears the cancel handle.
func (a *App) runSubmission(ctx context.Context, svc *services.Services, prompt string) {
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}()

	if err := svc.Form.Submit(ctx, prompt); err != nil {
		a.logger.Warn("submission ended with error", zap.Error(err))
	}
}

// rebuild replaces the wired services for settings. The previous services
// stay in place when wiring fails.
func (a *App) rebuild(settings domain.Settings) error {
	next, err := a.build(settings, services.Hooks{
		OnEvent:         a.publishEvent,
		OnVideoUploaded: a.videoUploaded,
	})

	a.mu.Lock()
	a.settings = settings
	if err != nil {
		if a.services == nil {
			a.buildErr = err
		}
		a.mu.Unlock()
		return err
	}
	prev := a.services
	a.services = next
	a.buildErr = nil
	a.mu.Unlock()

	if prev != nil {
		if closeErr := prev.Close(); closeErr != nil {
			a.logger.Warn("release previous services", zap.Error(closeErr))
		}
	}
	return nil
}

// current returns the wired services or the error that prevented wiring.
func (a *App) current() (*services.Services, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.services == nil {
		if a.buildErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrServicesUnavailable, a.buildErr)
		}
		return nil, ErrServicesUnavailable
	}
	return a.services, nil
}

// previewHandler serves preview URLs from the current form's registry.
func (a *App) previewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc, err := a.current()
		if err != nil || !strings.HasPrefix(r.URL.Path, preview.Prefix) {
			http.NotFound(w, r)
			return
		}
		svc.Form.Previews().ServeHTTP(w, r)
	})
}

// publishEvent pushes a form event to the front end.
func (a *App) publishEvent(event jobs.Event) {
	a.emitEvent(EventSubmission, event)
}

// videoUploaded notifies the front end of a video accepted by the service.
func (a *App) videoUploaded(id string) {
	a.logger.Info("video uploaded", zap.String("video_id", id))
	a.emitEvent(EventVideoUploaded, id)
}

func (a *App) emitEvent(name string, data interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	emit := a.emit
	a.mu.Unlock()
	if ctx != nil && emit != nil {
		emit(ctx, name, data)
	}
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

func (a *App) submissionActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

func (a *App) language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings.Language
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}
