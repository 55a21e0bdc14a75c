// Package transcode converts a selected video into the small MP3 clip that
// is uploaded for transcription.
package transcode

import (
	"context"
	"fmt"
	"io"
	"os"

	"upload-ai/internal/domain"
	"upload-ai/internal/engine"
)

const (
	// InputName and OutputName are the fixed workspace file names.
	InputName  = "input.mp4"
	OutputName = "output.mp3"

	// AudioFileName and AudioMIMEType describe the produced upload.
	AudioFileName = "audio.mp3"
	AudioMIMEType = "audio/mpeg"

	AudioBitrate = "20k"
	AudioCodec   = "libmp3lame"
)

// Engine is the subset of *engine.Engine the conversion needs.
type Engine interface {
	Load(ctx context.Context) error
	WriteFile(name string, r io.Reader) error
	Exec(ctx context.Context, args []string) (engine.CommandLog, error)
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
}

// BuildArgs returns the audio-only, 20 kbit/s MP3 conversion arguments.
func BuildArgs(inputName, outputName string) []string {
	return []string{
		"-i", inputName,
		"-map", "0:a",
		"-b:a", AudioBitrate,
		"-acodec", AudioCodec,
		outputName,
	}
}

// VideoToAudio loads the engine if needed, runs the conversion and returns
// the resulting clip. Engine errors are returned unchanged.
func VideoToAudio(ctx context.Context, eng Engine, video domain.VideoFile) (domain.AudioFile, error) {
	if err := eng.Load(ctx); err != nil {
		return domain.AudioFile{}, err
	}

	src, err := os.Open(video.Path)
	if err != nil {
		return domain.AudioFile{}, fmt.Errorf("open video %s: %w", video.Path, err)
	}
	writeErr := eng.WriteFile(InputName, src)
	_ = src.Close()
	defer func() { _ = eng.DeleteFile(InputName) }()
	if writeErr != nil {
		return domain.AudioFile{}, writeErr
	}

	defer func() { _ = eng.DeleteFile(OutputName) }()
	if _, err := eng.Exec(ctx, BuildArgs(InputName, OutputName)); err != nil {
		return domain.AudioFile{}, err
	}

	data, err := eng.ReadFile(OutputName)
	if err != nil {
		return domain.AudioFile{}, err
	}

	return domain.AudioFile{
		Name:     AudioFileName,
		MIMEType: AudioMIMEType,
		Data:     data,
	}, nil
}
