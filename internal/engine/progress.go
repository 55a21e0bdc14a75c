package engine

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// progressTracker turns ffmpeg "-progress pipe:1" output into a ratio.
// The total comes from the input's Duration line on stderr.
type progressTracker struct {
	mu     sync.Mutex
	total  time.Duration
	last   float64
	report func(ratio float64)
}

func newProgressTracker(report func(ratio float64)) *progressTracker {
	return &progressTracker{report: report, last: -1}
}

// stderrLine records the input duration when ffmpeg prints it.
func (p *progressTracker) stderrLine(line string) {
	total, ok := parseDurationLine(line)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		p.total = total
	}
}

// stdoutLine consumes one key=value progress line.
func (p *progressTracker) stdoutLine(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}

	var ratio float64
	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return
		}
		p.mu.Lock()
		total := p.total
		p.mu.Unlock()
		if total <= 0 {
			return
		}
		ratio = float64(time.Duration(us)*time.Microsecond) / float64(total)
	case "progress":
		if value != "end" {
			return
		}
		ratio = 1
	default:
		return
	}

	if ratio > 1 {
		ratio = 1
	}

	p.mu.Lock()
	if ratio <= p.last {
		p.mu.Unlock()
		return
	}
	p.last = ratio
	p.mu.Unlock()

	if p.report != nil {
		p.report(ratio)
	}
}

// parseDurationLine extracts "Duration: HH:MM:SS.ss" from an ffmpeg log line.
func parseDurationLine(line string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// lineWriter splits a byte stream into lines. exec.Cmd writes each stream
// from a single goroutine, so no locking is needed.
type lineWriter struct {
	buf  []byte
	line func(string)
}

func newLineWriter(fn func(string)) *lineWriter {
	return &lineWriter{line: fn}
}

// Write buffers p and emits every complete \n or \r terminated line.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if line != "" {
			w.line(line)
		}
	}
	return len(p), nil
}

// Flush emits a trailing unterminated line.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.line(string(w.buf))
		w.buf = nil
	}
}
