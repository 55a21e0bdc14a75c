package domain

import "time"

// Status tracks each pipeline stage for a single submission.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConverting Status = "converting"
	StatusUploading  Status = "uploading"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Active reports whether the status is a running pipeline stage.
func (s Status) Active() bool {
	switch s {
	case StatusConverting, StatusUploading, StatusGenerating:
		return true
	default:
		return false
	}
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	APIBaseURL            string `json:"apiBaseUrl"`
	APIToken              string `json:"apiToken,omitempty"`
	EngineBaseURL         string `json:"engineBaseUrl"`
	EngineDir             string `json:"engineDir"`
	FFmpegPath            string `json:"ffmpegPath,omitempty"`
	Language              string `json:"language"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
	HistoryPath           string `json:"historyPath"`
}

// RequestTimeout converts the configured timeout, zero meaning no limit.
func (s Settings) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// Submission stores the current submission identity and lifecycle status.
// Reason is only set when Status is StatusFailed.
type Submission struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
	VideoID string `json:"videoId,omitempty"`
}

// VideoFile is the video picked by the user.
type VideoFile struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// AudioFile is the converted clip ready for upload.
type AudioFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// HistoryEntry is one video accepted by the remote service.
type HistoryEntry struct {
	VideoID    string    `json:"videoId"`
	FileName   string    `json:"fileName"`
	Prompt     string    `json:"prompt"`
	AudioBytes int64     `json:"audioBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}
