package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultFilename is the upload name for recorder output.
	DefaultFilename = "recording.webm"
	stopTimeout     = 5 * time.Second
	maxStderr       = 4 << 10
)

// ErrEmptyRecording means the recorder produced no audio.
var ErrEmptyRecording = errors.New("recorder produced no audio")

// Recording is a finished capture ready for the sync coordinator.
type Recording struct {
	Blob      []byte
	Filename  string
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder runs an external command that writes audio to stdout, e.g.
//
//	ffmpeg -f pulse -i default -f webm -
//
// and tracks the capture Phase around it.
type Recorder struct {
	argv     []string
	filename string
	logger   *slog.Logger

	mu      sync.Mutex
	phase   Phase
	cmd     *exec.Cmd
	stdout  *syncBuffer
	stderr  *syncBuffer
	started time.Time
	done    chan error
}

// NewRecorder returns a Recorder for argv. filename names the upload.
func NewRecorder(argv []string, filename string, logger *slog.Logger) (*Recorder, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("record command not configured")
	}
	if strings.TrimSpace(filename) == "" {
		filename = DefaultFilename
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{argv: append([]string(nil), argv...), filename: filename, logger: logger}, nil
}

// Phase returns the current phase.
func (r *Recorder) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Start launches the recorder command.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := Transition(r.phase, EventStart)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	stdout := &syncBuffer{}
	stderr := &syncBuffer{limit: maxStderr}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder %q: %w", r.argv[0], err)
	}

	r.cmd, r.stdout, r.stderr = cmd, stdout, stderr
	r.started = time.Now()
	r.done = make(chan error, 1)
	r.phase = next
	go func(done chan<- error) { done <- cmd.Wait() }(r.done)

	r.logger.Info("recording started", "command", r.argv[0], "pid", cmd.Process.Pid)
	return nil
}

// Captured returns how many audio bytes the current recording has produced.
func (r *Recorder) Captured() int {
	r.mu.Lock()
	out := r.stdout
	r.mu.Unlock()
	if out == nil {
		return 0
	}
	return out.Len()
}

// Elapsed returns how long the current recording has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != Capturing {
		return 0
	}
	return time.Since(r.started)
}

// Stop interrupts the recorder and returns what it wrote. The phase moves to
// Finalizing on success and Failed when no audio was captured.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	next, err := Transition(r.phase, EventStop)
	if err != nil {
		r.mu.Unlock()
		return Recording{}, err
	}
	r.phase = next
	cmd, done, started := r.cmd, r.done, r.started
	r.mu.Unlock()

	interrupted := true
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		interrupted = false
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-time.After(stopTimeout):
		_ = cmd.Process.Kill()
		waitErr = <-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	blob := r.stdout.Bytes()
	rec := Recording{Blob: blob, Filename: r.filename, StartedAt: started, Duration: time.Since(started)}

	var exitErr *exec.ExitError
	if waitErr != nil && !(interrupted && errors.As(waitErr, &exitErr)) {
		r.logger.Warn("recorder exited with error", "error", waitErr, "stderr", r.stderr.String())
	}
	if len(blob) == 0 {
		r.phase, _ = Transition(r.phase, EventFailed)
		return Recording{}, fmt.Errorf("%w: %s", ErrEmptyRecording, strings.TrimSpace(r.stderr.String()))
	}

	r.logger.Info("recording stopped", "bytes", len(blob), "duration", rec.Duration.Round(time.Millisecond))
	return rec, nil
}

// Complete closes the cycle with the delivery outcome.
func (r *Recorder) Complete(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := Transition(r.phase, e)
	if err != nil {
		return err
	}
	r.phase = next
	return nil
}

// FromFile loads an existing audio file as a finished recording.
func FromFile(path string) (Recording, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Recording{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Recording{}, fmt.Errorf("%s is a directory", path)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return Recording{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(blob) == 0 {
		return Recording{}, fmt.Errorf("%s: %w", path, ErrEmptyRecording)
	}
	return Recording{Blob: blob, Filename: filepath.Base(path), StartedAt: info.ModTime()}, nil
}

// syncBuffer is a goroutine-safe buffer. A positive limit keeps only the
// first limit bytes.
type syncBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
