package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	downloadTimeout  = 30 * time.Minute
	lockRetryDelay   = 250 * time.Millisecond
	bootstrapLockKey = ".bootstrap.lock"
)

// LoaderOptions configures where the ffmpeg executable comes from.
type LoaderOptions struct {
	// FFmpegPath, when set, is used as-is and skips PATH lookup and download.
	FFmpegPath string
	// BaseURL is the fixed, versioned origin the bootstrap downloads from.
	BaseURL  string
	CacheDir string
	Client   *http.Client
	Logger   *zap.Logger
}

// Loader resolves the ffmpeg executable, downloading it on first use.
type Loader struct {
	explicitPath string
	baseURL      string
	cacheDir     string
	client       *http.Client
	lookPath     func(string) (string, error)
	goos         string
	goarch       string
	logger       *zap.Logger
}

// NewLoader builds a loader for the current platform.
func NewLoader(opts LoaderOptions) *Loader {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		explicitPath: strings.TrimSpace(opts.FFmpegPath),
		baseURL:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		cacheDir:     strings.TrimSpace(opts.CacheDir),
		client:       client,
		lookPath:     exec.LookPath,
		goos:         goruntime.GOOS,
		goarch:       goruntime.GOARCH,
		logger:       logger,
	}
}

// Source describes how Resolve would find ffmpeg without touching the network.
type Source struct {
	Kind string
	Path string
}

// Source kinds.
const (
	SourceExplicit  = "explicit"
	SourcePath      = "path"
	SourceCache     = "cache"
	SourceBootstrap = "bootstrap"
)

// Locate reports where ffmpeg is available locally. Kind is SourceBootstrap
// when a download is still required.
func (l *Loader) Locate() (Source, error) {
	if l.explicitPath != "" {
		info, err := os.Stat(l.explicitPath)
		if err != nil {
			return Source{}, fmt.Errorf("configured ffmpeg path: %w", err)
		}
		if info.IsDir() {
			return Source{}, fmt.Errorf("configured ffmpeg path is a directory: %s", l.explicitPath)
		}
		return Source{Kind: SourceExplicit, Path: l.explicitPath}, nil
	}

	if path, err := l.lookPath("ffmpeg"); err == nil {
		return Source{Kind: SourcePath, Path: path}, nil
	}

	if path, ok := l.cached(); ok {
		return Source{Kind: SourceCache, Path: path}, nil
	}

	return Source{Kind: SourceBootstrap, Path: l.executablePath()}, nil
}

// Resolve returns a runnable ffmpeg path, running the bootstrap if needed.
func (l *Loader) Resolve(ctx context.Context) (string, error) {
	src, err := l.Locate()
	if err != nil {
		return "", err
	}
	if src.Kind != SourceBootstrap {
		l.logger.Debug("ffmpeg resolved", zap.String("source", src.Kind), zap.String("path", src.Path))
		return src.Path, nil
	}
	return l.Fetch(ctx)
}

// Fetch downloads the pinned executable and its license into the cache dir.
// A file lock keeps concurrent processes from downloading at the same time.
func (l *Loader) Fetch(ctx context.Context) (string, error) {
	if l.cacheDir == "" {
		return "", fmt.Errorf("engine cache directory is not configured")
	}
	if l.baseURL == "" {
		return "", fmt.Errorf("engine base URL is not configured")
	}
	asset, err := AssetName(l.goos, l.goarch)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare engine cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(l.cacheDir, bootstrapLockKey))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("acquire engine bootstrap lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("acquire engine bootstrap lock: not acquired")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Warn("release engine bootstrap lock", zap.Error(err))
		}
	}()

	// Another process may have finished the download while we waited.
	if path, ok := l.cached(); ok {
		return path, nil
	}

	exePath := l.executablePath()
	assets := []struct {
		url  string
		dest string
		mode os.FileMode
	}{
		{url: l.baseURL + "/" + asset, dest: exePath, mode: 0o755},
		{url: l.baseURL + "/" + asset + ".LICENSE", dest: filepath.Join(l.cacheDir, "ffmpeg.LICENSE"), mode: 0o644},
	}

	started := time.Now()
	l.logger.Info("engine bootstrap started", zap.String("base_url", l.baseURL), zap.String("asset", asset))
	for _, a := range assets {
		if err := l.download(ctx, a.dest, a.url, a.mode); err != nil {
			return "", fmt.Errorf("download %s: %w", a.url, err)
		}
	}
	l.logger.Info("engine bootstrap finished", zap.String("path", exePath), zap.Duration("elapsed", time.Since(started)))

	return exePath, nil
}

// CacheDir returns the directory used for downloaded engine assets.
func (l *Loader) CacheDir() string {
	return l.cacheDir
}

func (l *Loader) cached() (string, bool) {
	if l.cacheDir == "" {
		return "", false
	}
	path := l.executablePath()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

func (l *Loader) executablePath() string {
	name := "ffmpeg"
	if l.goos == "windows" {
		name += ".exe"
	}
	return filepath.Join(l.cacheDir, name)
}

// download writes sourceURL to destinationPath through a temporary file.
func (l *Loader) download(ctx context.Context, destinationPath, sourceURL string, mode os.FileMode) error {
	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "upload-ai")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}
	return nil
}

// AssetName maps a Go platform onto the release asset name.
func AssetName(goos, goarch string) (string, error) {
	var osPart string
	switch goos {
	case "linux", "darwin":
		osPart = goos
	case "windows":
		osPart = "win32"
	default:
		return "", fmt.Errorf("no ffmpeg build for %s/%s", goos, goarch)
	}

	var archPart string
	switch goarch {
	case "amd64":
		archPart = "x64"
	case "arm64":
		archPart = "arm64"
	case "386":
		archPart = "ia32"
	default:
		return "", fmt.Errorf("no ffmpeg build for %s/%s", goos, goarch)
	}
	if goos == "darwin" && archPart == "ia32" {
		return "", fmt.Errorf("no ffmpeg build for %s/%s", goos, goarch)
	}

	return "ffmpeg-" + osPart + "-" + archPart, nil
}
