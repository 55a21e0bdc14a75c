package form

import (
	"errors"

	"upload-ai/internal/engine"
)

// commandLogFrom extracts the ffmpeg invocation behind an engine failure.
func commandLogFrom(err error) (engine.CommandLog, bool) {
	var engErr *engine.EngineError
	if errors.As(err, &engErr) && engErr.CommandLog.Command != "" {
		return engErr.CommandLog, true
	}
	return engine.CommandLog{}, false
}
