package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"upload-ai/internal/domain"
	"upload-ai/internal/history"
	"upload-ai/internal/pipeline"
)

type fakeRunner struct {
	run func(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

func (r *fakeRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	return r.run(ctx, req)
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(path, []byte("\x00\x00\x00\x18ftypmp42"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func openHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	return store
}

// TestVideoUploadedRecordsHistory checks the upload callback persists the entry.
func TestVideoUploadedRecordsHistory(t *testing.T) {
	var uploaded []string
	runner := &fakeRunner{run: func(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
		return pipeline.Result{VideoID: "abc123", AudioSize: 4096}, nil
	}}
	s := Assemble(domain.Settings{}, zap.NewNop(), Hooks{
		OnVideoUploaded: func(id string) { uploaded = append(uploaded, id) },
	}, runner, openHistory(t))
	defer s.Close()

	if err := s.Form.SelectFiles([]string{writeVideo(t)}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Form.Submit(context.Background(), "cat,dog"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(uploaded) != 1 || uploaded[0] != "abc123" {
		t.Fatalf("uploaded = %v, want [abc123]", uploaded)
	}

	entries, err := s.History.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.VideoID != "abc123" || got.FileName != "talk.mp4" || got.Prompt != "cat,dog" || got.AudioBytes != 4096 {
		t.Fatalf("entry = %+v", got)
	}
}

// TestFailedSubmissionRecordsNothing checks failures skip history and hooks.
func TestFailedSubmissionRecordsNothing(t *testing.T) {
	called := false
	runner := &fakeRunner{run: func(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
		return pipeline.Result{}, errors.New("boom")
	}}
	s := Assemble(domain.Settings{}, zap.NewNop(), Hooks{
		OnVideoUploaded: func(string) { called = true },
	}, runner, openHistory(t))
	defer s.Close()

	if err := s.Form.SelectFiles([]string{writeVideo(t)}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Form.Submit(context.Background(), ""); err == nil {
		t.Fatal("expected submit error")
	}
	if called {
		t.Fatal("upload hook must not fire on failure")
	}
	entries, err := s.History.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

// TestBuildRejectsInvalidAPIURL checks settings validation happens up front.
func TestBuildRejectsInvalidAPIURL(t *testing.T) {
	settings := domain.Settings{
		APIBaseURL:  "not a url",
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
	}
	if _, err := Build(settings, nil, Hooks{}); err == nil {
		t.Fatal("expected error for invalid api url")
	}
}

// TestBuildWiresComponents checks a valid configuration builds every part.
func TestBuildWiresComponents(t *testing.T) {
	root := t.TempDir()
	settings := domain.Settings{
		APIBaseURL:    "http://localhost:3333",
		EngineBaseURL: "https://example.com/b6.0",
		EngineDir:     filepath.Join(root, "engine"),
		HistoryPath:   filepath.Join(root, "history.db"),
	}
	s, err := Build(settings, nil, Hooks{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if s.Loader == nil || s.Engine == nil || s.Client == nil || s.Form == nil || s.History == nil {
		t.Fatalf("services not fully wired: %+v", s)
	}
	if s.Engine.Loaded() {
		t.Fatal("engine must stay unloaded until the first conversion")
	}
}
