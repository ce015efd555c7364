package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hark/recorder"
)

type fakeRecorder struct {
	dir      string
	startErr error
	// duringStart runs before Start returns, with the cancel hook it was given.
	duringStart func(onCancel func())

	mu       sync.Mutex
	active   bool
	path     string
	onCancel func()
	starts   int
	cancels  int
}

func (r *fakeRecorder) Start(_ context.Context, onCancel func()) error {
	if err := r.start(onCancel); err != nil {
		return err
	}
	if r.duringStart != nil {
		r.duringStart(onCancel)
	}
	return nil
}

func (r *fakeRecorder) start(onCancel func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.active {
		return recorder.ErrAlreadyRecording
	}
	if r.startErr != nil {
		return r.startErr
	}
	r.path = filepath.Join(r.dir, "recording.mp3")
	if err := os.WriteFile(r.path, []byte("audio"), 0o644); err != nil {
		return err
	}
	r.active = true
	r.onCancel = onCancel
	return nil
}

func (r *fakeRecorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return "", recorder.ErrNotRecording
	}
	r.active = false
	r.onCancel = nil
	return r.path, nil
}

func (r *fakeRecorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.cancels++
	r.active = false
	r.onCancel = nil
	os.Remove(r.path)
}

func (r *fakeRecorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// pressEscape fires the bound cancel callback like the transient hotkey.
func (r *fakeRecorder) pressEscape() {
	r.mu.Lock()
	fn := r.onCancel
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *fakeRecorder) artifactExists() bool {
	r.mu.Lock()
	p := r.path
	r.mu.Unlock()
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

type fakeTranscriber struct {
	text string
	err  error
	gate chan struct{}

	mu      sync.Mutex
	calls   int
	sawFile bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	_, statErr := os.Stat(path)
	f.mu.Lock()
	f.calls++
	f.sawFile = statErr == nil
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type correctCall struct {
	text, profile string
	condensed     bool
}

type converseCall struct {
	input, selection string
}

type fakeProcessor struct {
	correctErr  error
	converseErr error

	mu        sync.Mutex
	corrects  []correctCall
	converses []converseCall
}

func (p *fakeProcessor) Correct(_ context.Context, text, profile string, condensed bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corrects = append(p.corrects, correctCall{text, profile, condensed})
	if p.correctErr != nil {
		return "", p.correctErr
	}
	return "fixed:" + text, nil
}

func (p *fakeProcessor) Converse(_ context.Context, input, selection string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.converses = append(p.converses, converseCall{input, selection})
	if p.converseErr != nil {
		return "", p.converseErr
	}
	return "reply:" + input, nil
}

func (p *fakeProcessor) correctCalls() []correctCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]correctCall(nil), p.corrects...)
}

func (p *fakeProcessor) converseCalls() []converseCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]converseCall(nil), p.converses...)
}

// fakeClipboard models the system clipboard plus a focused app whose
// selection lands on the clipboard when it receives the copy keystroke.
type fakeClipboard struct {
	mu        sync.Mutex
	content   string
	selection string
	copyErr   error
	pasted    []string
}

func (c *fakeClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = text
	return nil
}

func (c *fakeClipboard) Copy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.copyErr != nil {
		return c.copyErr
	}
	if c.selection != "" {
		c.content = c.selection
	}
	return nil
}

func (c *fakeClipboard) Paste() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pasted = append(c.pasted, c.content)
	return nil
}

func (c *fakeClipboard) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

func (c *fakeClipboard) pastes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pasted...)
}

type fakeSettings struct {
	autoCorrect bool
	condensed   bool
	profile     string
}

func (s fakeSettings) AutoCorrect() bool { return s.autoCorrect }
func (s fakeSettings) Condensed() bool   { return s.condensed }
func (s fakeSettings) Profile() string {
	if s.profile == "" {
		return "grammar"
	}
	return s.profile
}

type statusEvent struct {
	state   State
	message string
}

type recordingSink struct {
	mu     sync.Mutex
	events []statusEvent
}

func (s *recordingSink) Status(state State, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, statusEvent{state, message})
}

func (s *recordingSink) states() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, len(s.events))
	for i, e := range s.events {
		out[i] = e.state
	}
	return out
}

func (s *recordingSink) last() statusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return statusEvent{}
	}
	return s.events[len(s.events)-1]
}

type fakeCues struct {
	mu                 sync.Mutex
	starts, ends, errs int
}

func (c *fakeCues) PlayStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
}

func (c *fakeCues) PlayEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends++
}

func (c *fakeCues) PlayError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs++
}

func (c *fakeCues) errors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs
}

type harness struct {
	c    *Controller
	rec  *fakeRecorder
	stt  *fakeTranscriber
	proc *fakeProcessor
	clip *fakeClipboard
	sink *recordingSink
	cues *fakeCues
}

const testRevert = 100 * time.Millisecond

func newHarness(t *testing.T, settings fakeSettings) *harness {
	t.Helper()
	h := &harness{
		rec:  &fakeRecorder{dir: t.TempDir()},
		stt:  &fakeTranscriber{text: "hello world"},
		proc: &fakeProcessor{},
		clip: &fakeClipboard{},
		sink: &recordingSink{},
		cues: &fakeCues{},
	}
	h.c = New(Deps{
		Recorder:    h.rec,
		Transcriber: h.stt,
		Processor:   h.proc,
		Clipboard:   h.clip,
		Settings:    settings,
		Sink:        h.sink,
		Cues:        h.cues,
	}, Config{RevertDelay: testRevert})
	t.Cleanup(h.c.Close)
	return h
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", c.State(), want)
}

var errBoom = errors.New("boom")
