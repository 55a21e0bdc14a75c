package engine

import (
	"testing"
	"time"
)

// TestParseDurationLine checks ffmpeg duration extraction.
func TestParseDurationLine(t *testing.T) {
	got, ok := parseDurationLine("  Duration: 01:02:03.50, start: 0.000000, bitrate: 128 kb/s")
	if !ok {
		t.Fatal("expected duration match")
	}
	want := time.Hour + 2*time.Minute + 3500*time.Millisecond
	if got != want {
		t.Fatalf("duration = %s, want %s", got, want)
	}

	if _, ok := parseDurationLine("Duration: N/A"); ok {
		t.Fatal("expected no match for N/A duration")
	}
}

// TestProgressTrackerIgnoresOutputBeforeDuration checks ratio gating.
func TestProgressTrackerIgnoresOutputBeforeDuration(t *testing.T) {
	var got []float64
	p := newProgressTracker(func(r float64) { got = append(got, r) })

	p.stdoutLine("out_time_us=500000")
	if len(got) != 0 {
		t.Fatalf("ratios = %v, want none without duration", got)
	}

	p.stderrLine("Duration: 00:00:02.00, start: 0")
	p.stdoutLine("out_time_us=500000")
	p.stdoutLine("out_time_us=500000")
	p.stdoutLine("out_time_us=9000000")
	p.stdoutLine("progress=end")

	want := []float64{0.25, 1}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ratios = %v, want %v", got, want)
	}
}

// TestLineWriterSplitsChunks checks line buffering across writes.
func TestLineWriterSplitsChunks(t *testing.T) {
	var lines []string
	w := newLineWriter(func(s string) { lines = append(lines, s) })

	_, _ = w.Write([]byte("fra"))
	_, _ = w.Write([]byte("me=1\r\nfps=2\n\nend"))
	w.Flush()

	want := []string{"frame=1", "fps=2", "end"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %q, want %q", lines, want)
		}
	}
}
