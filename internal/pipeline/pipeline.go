// Package pipeline runs one submission: convert the video to audio, upload
// the audio, then request its transcription.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"upload-ai/internal/domain"
	"upload-ai/internal/transcode"
)

// Request contains the selected video, prompt and progress callbacks.
type Request struct {
	Video      domain.VideoFile
	Prompt     string
	OnStage    func(status domain.Status)
	OnProgress func(ratio float64)
}

// Result describes a completed submission.
type Result struct {
	VideoID   string
	AudioSize int
}

// PipelineError is a stage-aware error.
type PipelineError struct {
	Stage   domain.Status `json:"stage"`
	Message string        `json:"message"`
	Err     error         `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Converter turns a video into the upload clip.
type Converter interface {
	Convert(ctx context.Context, video domain.VideoFile, onProgress func(float64)) (domain.AudioFile, error)
}

// Uploader is the remote API used by the pipeline.
type Uploader interface {
	UploadVideo(ctx context.Context, audio domain.AudioFile) (string, error)
	RequestTranscription(ctx context.Context, id, prompt string) error
}

// Pipeline orchestrates conversion, upload and the transcription request.
type Pipeline struct {
	converter Converter
	uploader  Uploader
	logger    *zap.Logger
}

// New constructs a pipeline.
func New(converter Converter, uploader Uploader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{converter: converter, uploader: uploader, logger: logger}
}

// Run executes the stages strictly in order; a stage starts only after the
// previous one returned successfully.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	logger := p.logger.With(zap.String("video", req.Video.Name))

	emitStage(req.OnStage, domain.StatusConverting)
	logger.Info("convert started")
	audio, err := p.converter.Convert(ctx, req.Video, req.OnProgress)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   domain.StatusConverting,
			Message: "video to audio conversion failed",
			Err:     err,
		}
	}
	logger.Info("convert finished", zap.Int("audio_bytes", len(audio.Data)))

	emitStage(req.OnStage, domain.StatusUploading)
	videoID, err := p.uploader.UploadVideo(ctx, audio)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   domain.StatusUploading,
			Message: "audio upload failed",
			Err:     err,
		}
	}

	emitStage(req.OnStage, domain.StatusGenerating)
	if err := p.uploader.RequestTranscription(ctx, videoID, req.Prompt); err != nil {
		return Result{}, &PipelineError{
			Stage:   domain.StatusGenerating,
			Message: "transcription request failed",
			Err:     err,
		}
	}

	return Result{VideoID: videoID, AudioSize: len(audio.Data)}, nil
}

// EngineConverter adapts a transcode.Engine into a Converter.
type EngineConverter struct {
	Engine interface {
		transcode.Engine
		SetProgressHandler(fn func(ratio float64))
	}
}

// Convert routes progress to onProgress for the duration of one conversion.
func (c EngineConverter) Convert(ctx context.Context, video domain.VideoFile, onProgress func(float64)) (domain.AudioFile, error) {
	c.Engine.SetProgressHandler(onProgress)
	defer c.Engine.SetProgressHandler(nil)
	return transcode.VideoToAudio(ctx, c.Engine, video)
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(domain.Status), status domain.Status) {
	if cb != nil {
		cb(status)
	}
}
