// Package form is the upload form controller. It holds the selected video
// and its preview URL, drives the submission pipeline and reports status
// changes and the final video id to its owner.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"upload-ai/internal/domain"
	"upload-ai/internal/jobs"
	"upload-ai/internal/pipeline"
	"upload-ai/internal/preview"
)

// ErrNoVideoSelected is returned by Submit when no video has been picked.
var ErrNoVideoSelected = errors.New("no video selected")

// Runner executes one submission pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Options configures a Form.
type Options struct {
	Runner   Runner
	Previews *preview.Registry
	Jobs     *jobs.Manager
	Events   *jobs.EventBus
	Logger   *zap.Logger
	// OnVideoUploaded is invoked once per successful submission.
	OnVideoUploaded func(id string)
	// OnEvent observes every published event, e.g. to push it to a UI.
	OnEvent func(jobs.Event)
}

// Form owns the state of one upload form.
type Form struct {
	runner     Runner
	previews   *preview.Registry
	jobs       *jobs.Manager
	events     *jobs.EventBus
	logger     *zap.Logger
	onUploaded func(id string)
	onEvent    func(jobs.Event)
	newID      func() string

	mu         sync.Mutex
	video      *domain.VideoFile
	previewURL string
}

// New builds a form in waiting state.
func New(opts Options) *Form {
	f := &Form{
		runner:     opts.Runner,
		previews:   opts.Previews,
		jobs:       opts.Jobs,
		events:     opts.Events,
		logger:     opts.Logger,
		onUploaded: opts.OnVideoUploaded,
		onEvent:    opts.OnEvent,
		newID:      uuid.NewString,
	}
	if f.previews == nil {
		f.previews = preview.NewRegistry()
	}
	if f.jobs == nil {
		f.jobs = jobs.NewManager()
	}
	if f.events == nil {
		f.events = jobs.NewEventBus(500)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// SelectFiles handles a file-input change. An empty list leaves the form
// untouched; otherwise the first path replaces the held video and the
// previous preview URL is revoked before a new one is issued.
func (f *Form) SelectFiles(paths []string) error {
	if len(paths) == 0 || strings.TrimSpace(paths[0]) == "" {
		return nil
	}

	video, err := DescribeVideo(paths[0])
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.previews.Revoke(f.previewURL)
	f.video = &video
	f.previewURL = f.previews.Create(video)

	if f.jobs.Current().Status == domain.StatusSuccess {
		_ = f.jobs.Reset()
	}

	f.logger.Info("video selected",
		zap.String("name", video.Name),
		zap.String("mime", video.MIMEType),
		zap.Int64("size", video.Size),
	)
	return nil
}

// SelectedVideo returns the held video, if any.
func (f *Form) SelectedVideo() (domain.VideoFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.video == nil {
		return domain.VideoFile{}, false
	}
	return *f.video, true
}

// PreviewURL returns the live preview URL or "" when nothing is selected.
func (f *Form) PreviewURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewURL
}

// Status returns the current submission snapshot.
func (f *Form) Status() domain.Submission {
	return f.jobs.Current()
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	return f.jobs.CanSubmit()
}

// Events returns events published after seq.
func (f *Form) Events(since int64) []jobs.Event {
	return f.events.Since(since)
}

// Submit runs convert, upload and transcription request in order. It
// blocks until the pipeline finishes. Any stage failure moves the form to
// failed and is returned; the completion callback only fires on success.
// After a success it returns jobs.ErrAlreadySubmitted until a new video is
// selected.
func (f *Form) Submit(ctx context.Context, prompt string) error {
	video, ok := f.SelectedVideo()
	if !ok {
		return ErrNoVideoSelected
	}

	id := f.newID()
	if err := f.jobs.Start(id); err != nil {
		return err
	}
	f.publishStatus(id, domain.StatusConverting, "Submission started")

	result, err := f.runner.Run(ctx, pipeline.Request{
		Video:  video,
		Prompt: prompt,
		OnStage: func(status domain.Status) {
			if status == domain.StatusConverting {
				return
			}
			if err := f.jobs.Transition(status); err == nil {
				f.publishStatus(id, status, "Running "+string(status)+" stage")
			}
		},
		OnProgress: func(ratio float64) {
			f.publish(jobs.Event{
				SubmissionID: id,
				Type:         jobs.EventTypeProgress,
				Status:       domain.StatusConverting,
				Progress:     ratio,
			})
		},
	})
	if err != nil {
		f.fail(ctx, id, err)
		return err
	}

	if err := f.jobs.Complete(result.VideoID); err != nil {
		err = fmt.Errorf("complete submission: %w", err)
		f.fail(ctx, id, err)
		return err
	}
	f.publishStatus(id, domain.StatusSuccess, "Submission completed")
	f.publish(jobs.Event{
		SubmissionID: id,
		Type:         jobs.EventTypeResult,
		Status:       domain.StatusSuccess,
		Message:      "Transcription requested",
		VideoID:      result.VideoID,
	})
	f.logger.Info("submission completed", zap.String("submission_id", id), zap.String("video_id", result.VideoID))

	if f.onUploaded != nil {
		f.onUploaded(result.VideoID)
	}
	return nil
}

// Close releases preview URLs and drops the selection.
func (f *Form) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews.RevokeAll()
	f.previewURL = ""
	f.video = nil
	return nil
}

// Previews exposes the registry so hosts can serve preview URLs.
func (f *Form) Previews() *preview.Registry {
	return f.previews
}

// fail moves the submission to failed and publishes the reason.
func (f *Form) fail(ctx context.Context, id string, err error) {
	reason := failureReason(ctx, err)
	_ = f.jobs.Fail(reason)
	f.logger.Error("submission failed", zap.String("submission_id", id), zap.Error(err))
	f.publish(jobs.Event{
		SubmissionID: id,
		Type:         jobs.EventTypeStatus,
		Status:       domain.StatusFailed,
		Message:      reason,
	})
	f.publishError(id, err)
}

// publishStatus sends a normalized status event.
func (f *Form) publishStatus(id string, status domain.Status, message string) {
	f.publish(jobs.Event{
		SubmissionID: id,
		Type:         jobs.EventTypeStatus,
		Status:       status,
		Message:      message,
	})
}

// publishError sends an error event, adding command context when present.
func (f *Form) publishError(id string, err error) {
	event := jobs.Event{
		SubmissionID: id,
		Type:         jobs.EventTypeError,
		Status:       domain.StatusFailed,
		Message:      err.Error(),
	}
	if log, ok := commandLogFrom(err); ok {
		event.Command = log.Command
		event.Args = log.Args
		event.ExitCode = log.ExitCode
		event.Stderr = tail(log.Stderr, 2000)
	}
	f.publish(event)
}

// publish stores event history and forwards to the observer.
func (f *Form) publish(event jobs.Event) {
	published := f.events.Publish(event)
	if f.onEvent != nil {
		f.onEvent(published)
	}
}

// DescribeVideo stats path and detects its MIME type by content, falling
// back to the file extension.
func DescribeVideo(path string) (domain.VideoFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.VideoFile{}, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return domain.VideoFile{}, fmt.Errorf("stat video: %w", err)
	}
	if info.IsDir() {
		return domain.VideoFile{}, fmt.Errorf("video path is a directory: %s", path)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.VideoFile{}, fmt.Errorf("read video header: %w", err)
	}

	return domain.VideoFile{
		Path:     path,
		Name:     filepath.Base(path),
		MIMEType: detectMIME(head[:n], path),
		Size:     info.Size(),
	}, nil
}

func detectMIME(head []byte, path string) string {
	sniffed := http.DetectContentType(head)
	if sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/plain") {
		return sniffed
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".mp4" {
		return "video/mp4"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return sniffed
}

func failureReason(ctx context.Context, err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return "cancelled"
	}
	return err.Error()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
