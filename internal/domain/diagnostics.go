package domain

import "time"

// DiagnosticStatus grades one startup check. Warn marks something the app
// can recover from on its own, such as an ffmpeg build that is downloaded
// on first use.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusWarn DiagnosticStatus = "warn"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem reports the engine, API URL or a local directory. Fixable
// items can be repaired in place: the engine is fetched, directories are
// created.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
	Fixable bool             `json:"fixable,omitempty"`
}

// DiagnosticReport is what the settings screen and `upload-ai diagnostics`
// render. HasFailures is false when only warnings are present.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}
