package engine

import "fmt"

// Engine operations reported in EngineError.Op.
const (
	OpLoad  = "load"
	OpWrite = "write"
	OpExec  = "exec"
	OpRead  = "read"
)

// CommandLog captures one ffmpeg invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// EngineError is an operation-aware error with optional command context.
type EngineError struct {
	Op         string     `json:"op"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats engine failures for logs and UI.
func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		if e.Err != nil {
			return fmt.Sprintf("engine %s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("engine %s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf(
		"engine %s: %s (cmd=%s exit=%d)",
		e.Op,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *EngineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
