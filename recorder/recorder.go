// Package recorder drives an external ffmpeg process that captures the
// microphone into a compressed audio file.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"hark/log"
)

var (
	ErrLaunchFailed     = errors.New("recorder launch failed")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

const (
	DefaultConfirmDelay = 250 * time.Millisecond
	DefaultStopTimeout  = 3 * time.Second
)

// CancelHook binds a cancellation trigger for the lifetime of a session.
type CancelHook interface {
	Bind(fn func()) error
	Unbind()
}

type Config struct {
	FFmpeg string // binary name or path, default "ffmpeg"
	Device string // capture device, empty for the OS default
	Path   string // output artifact

	ConfirmDelay time.Duration
	StopTimeout  time.Duration
}

type session struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	path      string
	startedAt time.Time
	done      chan struct{}
	stderr    *bytes.Buffer
}

type Recorder struct {
	cfg  Config
	hook CancelHook

	// command builds the capture process; tests swap it for a helper.
	command func(name string, args ...string) *exec.Cmd

	mu      sync.Mutex
	session *session
}

func New(cfg Config, hook CancelHook) *Recorder {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.ConfirmDelay <= 0 {
		cfg.ConfirmDelay = DefaultConfirmDelay
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Recorder{cfg: cfg, hook: hook, command: exec.Command}
}

// LavfiPrefix selects an ffmpeg lavfi source instead of a capture device,
// e.g. "lavfi:sine=frequency=440". Used for headless runs.
const LavfiPrefix = "lavfi:"

// Args returns the ffmpeg argument vector for capturing from device into path.
func Args(device, path string) []string {
	format, input := inputFor(device)
	if src, ok := strings.CutPrefix(device, LavfiPrefix); ok {
		format, input = "lavfi", src
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", input,
		"-ac", "1", "-ar", "16000",
		"-c:a", "libmp3lame", "-b:a", "32k",
		"-y", path,
	}
}

// Start launches the capture process and returns once it has survived the
// confirmation delay. onCancel is bound to the cancel hook until the
// session ends.
func (r *Recorder) Start(ctx context.Context, onCancel func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrAlreadyRecording
	}

	if err := os.Remove(r.cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("recorder: removing stale artifact: %v", err)
	}

	cmd := r.command(r.cfg.FFmpeg, Args(r.cfg.Device, r.cfg.Path)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	s := &session{
		cmd:       cmd,
		stdin:     stdin,
		path:      r.cfg.Path,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		stderr:    stderr,
	}
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()

	select {
	case <-s.done:
		os.Remove(s.path)
		return fmt.Errorf("%w: ffmpeg exited: %s", ErrLaunchFailed, stderrTail(stderr))
	case <-ctx.Done():
		kill(s)
		os.Remove(s.path)
		return ctx.Err()
	case <-time.After(r.cfg.ConfirmDelay):
	}

	if r.hook != nil && onCancel != nil {
		if err := r.hook.Bind(onCancel); err != nil {
			log.Warnf("recorder: cancel hotkey unavailable: %v", err)
		}
	}

	r.session = s
	log.Infof("recorder: capturing pid=%d path=%s", cmd.Process.Pid, s.path)
	return nil
}

// Stop asks ffmpeg to finalise the file and returns its path. The artifact
// is left for the caller to delete.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return "", ErrNotRecording
	}
	r.session = nil
	r.unbind()

	if _, err := io.WriteString(s.stdin, "q\n"); err != nil {
		log.Warnf("recorder: sending quit: %v", err)
	}
	s.stdin.Close()

	select {
	case <-s.done:
	case <-time.After(r.cfg.StopTimeout):
		log.Warn("recorder: ffmpeg did not exit in time, killing")
		kill(s)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("recording produced no audio: %w (%s)", err, stderrTail(s.stderr))
	}
	log.Infof("recorder: stopped after %s, %d bytes", time.Since(s.startedAt).Round(time.Millisecond), info.Size())
	return s.path, nil
}

// Cancel kills the session and deletes the partial artifact. It is a no-op
// when nothing is recording.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return
	}
	r.session = nil
	r.unbind()
	kill(s)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("recorder: removing cancelled artifact: %v", err)
	}
	log.Info("recorder: cancelled")
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

func (r *Recorder) unbind() {
	if r.hook != nil {
		r.hook.Unbind()
	}
}

func kill(s *session) {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.stdin.Close()
	<-s.done
}

func stderrTail(b *bytes.Buffer) string {
	msg := strings.TrimSpace(b.String())
	if msg == "" {
		return "no output"
	}
	if len(msg) > 300 {
		msg = msg[len(msg)-300:]
	}
	return msg
}
