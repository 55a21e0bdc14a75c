package jobs

import (
	"errors"
	"fmt"
	"sync"

	"upload-ai/internal/domain"
)

// ErrSubmissionActive is returned when starting while a submission runs.
var ErrSubmissionActive = errors.New("submission already running")

// ErrAlreadySubmitted is returned when starting again after a success
// without selecting a new video.
var ErrAlreadySubmitted = errors.New("video already submitted; select a new video")

// ErrNoActiveSubmission is returned when failing or cancelling an idle form.
var ErrNoActiveSubmission = errors.New("no active submission")

// Manager tracks the single allowed submission and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Submission
}

// NewManager creates a manager in waiting state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Submission{
			Status: domain.StatusWaiting,
		},
	}
}

// Start begins a new submission and moves it to converting.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status.Active() {
		return ErrSubmissionActive
	}
	if m.current.Status == domain.StatusSuccess {
		return ErrAlreadySubmitted
	}
	if !isValidTransition(m.current.Status, domain.StatusConverting) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, domain.StatusConverting)
	}

	m.current = domain.Submission{
		ID:     id,
		Status: domain.StatusConverting,
	}
	return nil
}

// Transition validates and applies a forward state transition.
func (m *Manager) Transition(status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" {
		return fmt.Errorf("cannot transition without an active submission")
	}
	if status == m.current.Status {
		return nil
	}
	if status == domain.StatusFailed {
		return fmt.Errorf("use Fail to record a failure reason")
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Complete moves a generating submission to success with the video id.
func (m *Manager) Complete(videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(m.current.Status, domain.StatusSuccess) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, domain.StatusSuccess)
	}
	m.current.Status = domain.StatusSuccess
	m.current.VideoID = videoID
	return nil
}

// Fail moves an active submission to failed with reason.
func (m *Manager) Fail(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.Status.Active() {
		return ErrNoActiveSubmission
	}
	m.current.Status = domain.StatusFailed
	m.current.Reason = reason
	return nil
}

// Current returns a snapshot of the current submission.
func (m *Manager) Current() domain.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset returns a finished manager to waiting. It refuses while active.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status.Active() {
		return ErrSubmissionActive
	}
	m.current = domain.Submission{Status: domain.StatusWaiting}
	return nil
}

// IsRunning reports whether the current state is an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status.Active()
}

// CanSubmit reports whether a new submission may start.
func (m *Manager) CanSubmit() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == domain.StatusWaiting || m.current.Status == domain.StatusFailed
}

// isValidTransition enforces the allowed submission state machine edges.
func isValidTransition(from, to domain.Status) bool {
	switch from {
	case domain.StatusWaiting:
		return to == domain.StatusConverting
	case domain.StatusConverting:
		return to == domain.StatusUploading || to == domain.StatusFailed
	case domain.StatusUploading:
		return to == domain.StatusGenerating || to == domain.StatusFailed
	case domain.StatusGenerating:
		return to == domain.StatusSuccess || to == domain.StatusFailed
	case domain.StatusSuccess:
		return to == domain.StatusWaiting
	case domain.StatusFailed:
		return to == domain.StatusConverting || to == domain.StatusWaiting
	default:
		return false
	}
}
