// Package engine owns the ffmpeg transcoding engine: locating or
// downloading the executable, an isolated scratch workspace that acts as
// the engine's virtual filesystem, and serialized command execution with
// progress reporting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// resolver finds a runnable ffmpeg executable.
type resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Options configures an Engine.
type Options struct {
	Loader     *Loader
	Logger     *zap.Logger
	OnProgress func(ratio float64)
}

// Engine is a lazily initialized ffmpeg session. The zero value is not
// usable; construct with New and release with Close.
type Engine struct {
	resolver   resolver
	runner     commandRunner
	logger     *zap.Logger
	onProgress func(ratio float64)
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error

	mu        sync.Mutex
	execMu    sync.Mutex
	loaded    bool
	binPath   string
	workspace string
}

// New builds an engine that resolves ffmpeg through loader on first Load.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		runner:     &execRunner{},
		logger:     logger,
		onProgress: opts.OnProgress,
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
	}
	if opts.Loader != nil {
		e.resolver = opts.Loader
	}
	return e
}

// Load resolves the executable and creates the workspace. Calling Load on
// an already loaded engine does nothing.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if e.resolver == nil {
		return &EngineError{Op: OpLoad, Message: "no ffmpeg loader configured"}
	}

	binPath, err := e.resolver.Resolve(ctx)
	if err != nil {
		return &EngineError{Op: OpLoad, Message: "resolve ffmpeg executable", Err: err}
	}

	workspace, err := e.mkdirTemp("", "upload-ai-engine-*")
	if err != nil {
		return &EngineError{Op: OpLoad, Message: "create engine workspace", Err: err}
	}

	e.binPath = binPath
	e.workspace = workspace
	e.loaded = true
	e.logger.Info("engine loaded", zap.String("ffmpeg", binPath), zap.String("workspace", workspace))
	return nil
}

// Loaded reports whether Load has completed since the last Close.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// SetProgressHandler replaces the progress callback used by Exec.
func (e *Engine) SetProgressHandler(fn func(ratio float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onProgress = fn
}

// WriteFile copies r into the workspace under name.
func (e *Engine) WriteFile(name string, r io.Reader) error {
	path, err := e.pathFor(OpWrite, name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &EngineError{Op: OpWrite, Message: "create " + name, Err: err}
	}
	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil {
		return &EngineError{Op: OpWrite, Message: "write " + name, Err: copyErr}
	}
	if closeErr != nil {
		return &EngineError{Op: OpWrite, Message: "close " + name, Err: closeErr}
	}
	return nil
}

// ReadFile returns the content of a workspace file.
func (e *Engine) ReadFile(name string) ([]byte, error) {
	path, err := e.pathFor(OpRead, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &EngineError{Op: OpRead, Message: "read " + name, Err: err}
	}
	return data, nil
}

// DeleteFile removes a workspace file; missing files are ignored.
func (e *Engine) DeleteFile(name string) error {
	path, err := e.pathFor(OpWrite, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &EngineError{Op: OpWrite, Message: "delete " + name, Err: err}
	}
	return nil
}

// Exec runs ffmpeg inside the workspace. Calls are serialized.
func (e *Engine) Exec(ctx context.Context, args []string) (CommandLog, error) {
	e.mu.Lock()
	loaded, binPath, workspace, onProgress := e.loaded, e.binPath, e.workspace, e.onProgress
	e.mu.Unlock()

	if !loaded {
		return CommandLog{}, &EngineError{Op: OpExec, Message: "engine is not loaded"}
	}

	e.execMu.Lock()
	defer e.execMu.Unlock()

	tracker := newProgressTracker(func(ratio float64) {
		e.logger.Debug("convert progress", zap.Int("percent", int(ratio*100+0.5)))
		if onProgress != nil {
			onProgress(ratio)
		}
	})
	stdout := newLineWriter(tracker.stdoutLine)
	stderr := newLineWriter(tracker.stderrLine)

	fullArgs := append([]string{"-hide_banner", "-nostdin", "-y", "-progress", "pipe:1", "-nostats"}, args...)
	result, runErr := e.runner.Run(ctx, command{
		Name:   binPath,
		Args:   fullArgs,
		Dir:    workspace,
		Stdout: stdout,
		Stderr: stderr,
	})
	stdout.Flush()
	stderr.Flush()

	log := CommandLog{
		Command:  binPath,
		Args:     fullArgs,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if runErr != nil {
		return log, &EngineError{
			Op:         OpExec,
			Message:    "ffmpeg command failed",
			CommandLog: log,
			Err:        runErr,
		}
	}
	return log, nil
}

// Close removes the workspace and returns the engine to its unloaded state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil
	}
	workspace := e.workspace
	e.loaded = false
	e.binPath = ""
	e.workspace = ""

	if err := e.removeAll(workspace); err != nil {
		return fmt.Errorf("remove engine workspace: %w", err)
	}
	e.logger.Info("engine closed")
	return nil
}

// pathFor maps a bare workspace file name to its host path.
func (e *Engine) pathFor(op, name string) (string, error) {
	e.mu.Lock()
	loaded, workspace := e.loaded, e.workspace
	e.mu.Unlock()

	if !loaded {
		return "", &EngineError{Op: op, Message: "engine is not loaded"}
	}
	clean := strings.TrimSpace(name)
	if clean == "" || clean != filepath.Base(clean) || clean == "." || clean == ".." {
		return "", &EngineError{Op: op, Message: fmt.Sprintf("invalid workspace file name %q", name)}
	}
	return filepath.Join(workspace, clean), nil
}

// NewForTests constructs an engine with injectable dependencies.
func NewForTests(
	res resolver,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
) *Engine {
	return &Engine{
		resolver:  res,
		runner:    runner,
		logger:    zap.NewNop(),
		mkdirTemp: mkdirTemp,
		removeAll: removeAll,
	}
}
