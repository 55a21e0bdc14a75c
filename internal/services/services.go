// Package services assembles the engine, API client, pipeline, form and
// history store from settings. The desktop app and the CLI share it.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"upload-ai/internal/api"
	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
	"upload-ai/internal/form"
	"upload-ai/internal/history"
	"upload-ai/internal/jobs"
	"upload-ai/internal/logging"
	"upload-ai/internal/pipeline"
)

const recordTimeout = 5 * time.Second

// Hooks lets the host observe form activity.
type Hooks struct {
	OnVideoUploaded func(id string)
	OnEvent         func(jobs.Event)
}

// Services owns every long-lived component built from one settings value.
type Services struct {
	Settings domain.Settings
	Loader   *engine.Loader
	Engine   *engine.Engine
	Client   *api.Client
	Form     *form.Form
	History  *history.Store

	logger *zap.Logger
	hooks  Hooks
	runner *recordingRunner
}

// Build wires the components for settings. The engine is created but not
// loaded; it bootstraps on the first conversion.
func Build(settings domain.Settings, logger *zap.Logger, hooks Hooks) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := api.New(api.Options{
		BaseURL: settings.APIBaseURL,
		Token:   settings.APIToken,
		Timeout: settings.RequestTimeout(),
		Logger:  logging.Component(logger, "api"),
	})
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	store, err := history.Open(settings.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	loader := engine.NewLoader(engine.LoaderOptions{
		FFmpegPath: settings.FFmpegPath,
		BaseURL:    settings.EngineBaseURL,
		CacheDir:   settings.EngineDir,
		Logger:     logging.Component(logger, "loader"),
	})
	eng := engine.New(engine.Options{
		Loader: loader,
		Logger: logging.Component(logger, "engine"),
	})

	runner := pipeline.New(pipeline.EngineConverter{Engine: eng}, client, logging.Component(logger, "pipeline"))
	s := Assemble(settings, logger, hooks, runner, store)
	s.Loader = loader
	s.Engine = eng
	s.Client = client
	return s, nil
}

// Assemble builds the form around runner and the upload callback. Build
// uses it with the real pipeline; hosts may pass their own runner.
func Assemble(
	settings domain.Settings,
	logger *zap.Logger,
	hooks Hooks,
	runner form.Runner,
	store *history.Store,
) *Services {
	s := &Services{
		Settings: settings,
		History:  store,
		logger:   logger,
		hooks:    hooks,
		runner:   &recordingRunner{next: runner},
	}
	s.Form = form.New(form.Options{
		Runner:          s.runner,
		Logger:          logging.Component(logger, "form"),
		OnVideoUploaded: s.videoUploaded,
		OnEvent:         hooks.OnEvent,
	})
	return s
}

// videoUploaded records the accepted video before forwarding the id.
func (s *Services) videoUploaded(id string) {
	req, result := s.runner.last()
	if s.History != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		err := s.History.Record(ctx, domain.HistoryEntry{
			VideoID:    id,
			FileName:   req.Video.Name,
			Prompt:     req.Prompt,
			AudioBytes: int64(result.AudioSize),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			s.logger.Warn("record upload history failed", zap.String("video_id", id), zap.Error(err))
		}
	}
	if s.hooks.OnVideoUploaded != nil {
		s.hooks.OnVideoUploaded(id)
	}
}

// Close releases the form, the engine and the history store.
func (s *Services) Close() error {
	var errs []error
	if s.Form != nil {
		errs = append(errs, s.Form.Close())
	}
	if s.Engine != nil {
		errs = append(errs, s.Engine.Close())
	}
	if s.History != nil {
		errs = append(errs, s.History.Close())
	}
	return errors.Join(errs...)
}

// recordingRunner remembers the last request and result so the upload
// callback can describe what was sent.
type recordingRunner struct {
	next form.Runner

	mu         sync.Mutex
	lastReq    pipeline.Request
	lastResult pipeline.Result
}

func (r *recordingRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	result, err := r.next.Run(ctx, req)
	if err == nil {
		r.mu.Lock()
		r.lastReq = req
		r.lastResult = result
		r.mu.Unlock()
	}
	return result, err
}

func (r *recordingRunner) last() (pipeline.Request, pipeline.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReq, r.lastResult
}
