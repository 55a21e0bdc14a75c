package jobs

import (
	"errors"
	"testing"

	"upload-ai/internal/domain"
)

// TestManagerLifecycle verifies normal progression to success state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() || !m.CanSubmit() {
		t.Fatal("new manager should be waiting and submittable")
	}

	if err := m.Start("sub-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() || m.CanSubmit() {
		t.Fatal("expected running and not submittable after start")
	}

	for _, status := range []domain.Status{
		domain.StatusUploading,
		domain.StatusGenerating,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	if err := m.Complete("abc123"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	current := m.Current()
	if current.Status != domain.StatusSuccess || current.VideoID != "abc123" {
		t.Fatalf("current = %+v, want success with abc123", current)
	}
	if m.CanSubmit() {
		t.Fatal("success should not be submittable until reset")
	}
	if err := m.Start("sub-2"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("start after success error = %v, want %v", err, ErrAlreadySubmitted)
	}
	if got := m.Current(); got.ID != "sub-1" || got.Status != domain.StatusSuccess {
		t.Fatalf("current = %+v, want untouched success", got)
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if m.Current().Status != domain.StatusWaiting {
		t.Fatalf("status = %s, want waiting", m.Current().Status)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Transition(domain.StatusUploading); err == nil {
		t.Fatal("expected error without active submission")
	}
	if err := m.Start("sub-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Transition(domain.StatusGenerating); err == nil {
		t.Fatal("expected skipped-stage error")
	}
	if err := m.Complete("x"); err == nil {
		t.Fatal("expected complete-from-converting error")
	}
	if err := m.Transition(domain.StatusFailed); err == nil {
		t.Fatal("expected Transition to refuse failed")
	}
	if err := m.Start("sub-2"); !errors.Is(err, ErrSubmissionActive) {
		t.Fatalf("second start error = %v, want %v", err, ErrSubmissionActive)
	}
}

// TestManagerFailReenablesSubmit verifies failure handling.
func TestManagerFailReenablesSubmit(t *testing.T) {
	m := NewManager()
	if err := m.Fail("x"); !errors.Is(err, ErrNoActiveSubmission) {
		t.Fatalf("fail while waiting error = %v, want %v", err, ErrNoActiveSubmission)
	}

	if err := m.Start("sub-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Transition(domain.StatusUploading); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := m.Fail("upload rejected"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	current := m.Current()
	if current.Status != domain.StatusFailed || current.Reason != "upload rejected" {
		t.Fatalf("current = %+v", current)
	}
	if !m.CanSubmit() {
		t.Fatal("failed submission should re-enable submit")
	}
	if err := m.Start("sub-2"); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	if m.Current().Reason != "" {
		t.Fatalf("reason should clear on restart, got %q", m.Current().Reason)
	}
}
