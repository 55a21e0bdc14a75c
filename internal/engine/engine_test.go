package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeResolver returns a fixed executable path and counts calls.
type fakeResolver struct {
	path  string
	err   error
	calls int
}

// Resolve returns the configured path or error.
func (f *fakeResolver) Resolve(ctx context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

// fakeRunner simulates command execution.
type fakeRunner struct {
	run func(ctx context.Context, cmd command) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, cmd command) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, cmd)
}

// TestEngineLoadIsIdempotent checks the loaded flag skips a second resolve.
func TestEngineLoadIsIdempotent(t *testing.T) {
	res := &fakeResolver{path: "/bin/ffmpeg"}
	eng := NewForTests(res, &fakeRunner{}, os.MkdirTemp, os.RemoveAll)

	for i := 0; i < 2; i++ {
		if err := eng.Load(context.Background()); err != nil {
			t.Fatalf("Load() #%d error = %v", i+1, err)
		}
	}
	if res.calls != 1 {
		t.Fatalf("resolve calls = %d, want 1", res.calls)
	}
	if !eng.Loaded() {
		t.Fatal("expected engine to be loaded")
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if eng.Loaded() {
		t.Fatal("expected engine to be unloaded after close")
	}
}

// TestEngineLoadFailureReturnsLoadError checks bootstrap error mapping.
func TestEngineLoadFailureReturnsLoadError(t *testing.T) {
	boom := errors.New("network down")
	eng := NewForTests(&fakeResolver{err: boom}, &fakeRunner{}, os.MkdirTemp, os.RemoveAll)

	err := eng.Load(context.Background())
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("error type = %T, want *EngineError", err)
	}
	if engErr.Op != OpLoad {
		t.Fatalf("op = %s, want %s", engErr.Op, OpLoad)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error %v should wrap %v", err, boom)
	}
	if eng.Loaded() {
		t.Fatal("engine should not be loaded after failure")
	}
}

// TestEngineFilesRequireLoad checks workspace access before Load fails.
func TestEngineFilesRequireLoad(t *testing.T) {
	eng := NewForTests(&fakeResolver{path: "ffmpeg"}, &fakeRunner{}, os.MkdirTemp, os.RemoveAll)

	if err := eng.WriteFile("input.mp4", strings.NewReader("x")); err == nil {
		t.Fatal("expected write error before load")
	}
	if _, err := eng.Exec(context.Background(), []string{"-version"}); err == nil {
		t.Fatal("expected exec error before load")
	}
}

// TestEngineWorkspaceRoundTrip checks write, read, delete and name checks.
func TestEngineWorkspaceRoundTrip(t *testing.T) {
	eng := NewForTests(&fakeResolver{path: "ffmpeg"}, &fakeRunner{}, os.MkdirTemp, os.RemoveAll)
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	if err := eng.WriteFile("input.mp4", strings.NewReader("video")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := eng.ReadFile("input.mp4")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "video" {
		t.Fatalf("data = %q, want video", data)
	}
	if err := eng.DeleteFile("input.mp4"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, err := eng.ReadFile("input.mp4"); err == nil {
		t.Fatal("expected read error after delete")
	}

	for _, name := range []string{"", "../escape.mp4", "dir/file.mp4", ".."} {
		if err := eng.WriteFile(name, strings.NewReader("x")); err == nil {
			t.Fatalf("expected invalid name error for %q", name)
		}
	}
}

// TestEngineExecRunsInWorkspaceAndReportsProgress checks exec wiring.
func TestEngineExecRunsInWorkspaceAndReportsProgress(t *testing.T) {
	var got command
	runner := &fakeRunner{run: func(ctx context.Context, cmd command) (commandResult, error) {
		got = cmd
		_, _ = cmd.Stderr.Write([]byte("  Duration: 00:00:04.00, start: 0.000000\n"))
		_, _ = cmd.Stdout.Write([]byte("out_time_us=1000000\nprogress=continue\nout_time_us=2000000\n"))
		_, _ = cmd.Stdout.Write([]byte("progress=end"))
		return commandResult{Stdout: "ok", ExitCode: 0}, nil
	}}
	eng := NewForTests(&fakeResolver{path: "/opt/ffmpeg"}, runner, os.MkdirTemp, os.RemoveAll)
	var ratios []float64
	eng.SetProgressHandler(func(r float64) { ratios = append(ratios, r) })

	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	log, err := eng.Exec(context.Background(), []string{"-i", "input.mp4", "output.mp3"})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if got.Name != "/opt/ffmpeg" {
		t.Fatalf("command = %q, want /opt/ffmpeg", got.Name)
	}
	if got.Dir == "" || filepath.Base(got.Dir) == "." {
		t.Fatalf("expected workspace dir, got %q", got.Dir)
	}
	if got.Args[len(got.Args)-1] != "output.mp3" || got.Args[0] != "-hide_banner" {
		t.Fatalf("unexpected args: %v", got.Args)
	}
	if log.Command != "/opt/ffmpeg" || log.Stdout != "ok" {
		t.Fatalf("unexpected log: %+v", log)
	}

	want := []float64{0.25, 0.5, 1}
	if len(ratios) != len(want) {
		t.Fatalf("ratios = %v, want %v", ratios, want)
	}
	for i := range want {
		if ratios[i] != want[i] {
			t.Fatalf("ratios = %v, want %v", ratios, want)
		}
	}
}

// TestEngineExecFailureCarriesCommandLog checks exec error mapping.
func TestEngineExecFailureCarriesCommandLog(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, cmd command) (commandResult, error) {
		return commandResult{Stderr: "Invalid data found", ExitCode: 1}, errors.New("exit status 1")
	}}
	eng := NewForTests(&fakeResolver{path: "ffmpeg"}, runner, os.MkdirTemp, os.RemoveAll)
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	_, err := eng.Exec(context.Background(), []string{"-i", "input.mp4"})
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("error type = %T, want *EngineError", err)
	}
	if engErr.Op != OpExec || engErr.CommandLog.ExitCode != 1 {
		t.Fatalf("unexpected error: %+v", engErr)
	}
	if !strings.Contains(engErr.Error(), "exit=1") {
		t.Fatalf("error text = %q", engErr.Error())
	}
}

// TestEngineCloseRemovesWorkspace checks teardown cleanup.
func TestEngineCloseRemovesWorkspace(t *testing.T) {
	var removed string
	eng := NewForTests(&fakeResolver{path: "ffmpeg"}, &fakeRunner{}, os.MkdirTemp, func(path string) error {
		removed = path
		return os.RemoveAll(path)
	})
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if removed == "" {
		t.Fatal("expected workspace removal")
	}
	if _, err := os.Stat(removed); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("workspace still present, stat err = %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
