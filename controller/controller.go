// Package controller runs the interaction state machine behind every
// hotkey: selection probing, recording, transcription, chat calls and
// delivery of the result into the focused application.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hark/log"
)

type Recorder interface {
	Start(ctx context.Context, onCancel func()) error
	Stop() (string, error)
	Cancel()
	Active() bool
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type TextProcessor interface {
	Correct(ctx context.Context, text, profile string, condensed bool) (string, error)
	Converse(ctx context.Context, input, selection string) (string, error)
}

type Clipboard interface {
	Read() (string, error)
	Write(text string) error
	Copy() error
	Paste() error
}

type Settings interface {
	AutoCorrect() bool
	Condensed() bool
	Profile() string
}

type StatusSink interface {
	Status(state State, message string)
}

type Cues interface {
	PlayStart()
	PlayEnd()
	PlayError()
}

type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Processor   TextProcessor
	Clipboard   Clipboard
	Settings    Settings
	Sink        StatusSink
	Cues        Cues
}

type Config struct {
	RevertDelay time.Duration // Done/Error back to Idle
	CopyDelay   time.Duration // wait for the app to answer the copy keystroke
	PasteDelay  time.Duration // wait for the clipboard owner before pasting
}

func DefaultConfig() Config {
	return Config{
		RevertDelay: time.Second,
		CopyDelay:   150 * time.Millisecond,
		PasteDelay:  50 * time.Millisecond,
	}
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	State   State  `json:"-"`
	Name    string `json:"state"`
	Flow    string `json:"flow"`
	Message string `json:"message,omitempty"`
}

type Controller struct {
	d   Deps
	cfg Config

	mu        sync.Mutex
	state     State
	flow      flow
	message   string
	selection string
	id        string
	started   time.Time
	gen       uint64
	revert    *time.Timer

	starting      bool // Recorder.Start in progress
	cancelPending bool
}

func New(d Deps, cfg Config) *Controller {
	if cfg.RevertDelay <= 0 {
		cfg.RevertDelay = DefaultConfig().RevertDelay
	}
	return &Controller{d: d, cfg: cfg}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a flow is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow != flowNone
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Name: c.state.String(), Flow: c.flow.String(), Message: c.message}
}

// GrammarFix corrects the current selection and pastes the result over it.
func (c *Controller) GrammarFix(ctx context.Context) error {
	if err := c.begin(flowGrammar); err != nil {
		return err
	}

	sel, orig, err := c.probeSelection()
	if err != nil {
		c.restore(orig)
		return c.fail(err)
	}
	if strings.TrimSpace(sel) == "" {
		c.restore(orig)
		return c.fail(ErrNoSelection)
	}

	c.set(Processing, "Correcting...")
	out, err := c.d.Processor.Correct(ctx, sel, c.d.Settings.Profile(), c.d.Settings.Condensed())
	if err != nil {
		c.restore(orig)
		return c.fail(err)
	}
	if err := c.deliver(out); err != nil {
		c.restore(orig)
		return c.fail(err)
	}
	return c.finish("Corrected")
}

// ToggleTranscription starts a recording, or stops the running one and
// pastes its transcript.
func (c *Controller) ToggleTranscription(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.flow == flowNone:
		c.claimLocked(flowTranscribe)
		c.mu.Unlock()
		return c.startRecording(ctx, "Recording... press again to stop, Esc to cancel")
	case c.flow == flowTranscribe && c.state == Recording:
		c.state = Processing
		c.message = "Transcribing..."
		c.mu.Unlock()
		c.d.Sink.Status(Processing, "Transcribing...")
		return c.transcribeThen(ctx, c.deliverTranscript)
	}
	c.mu.Unlock()
	return c.reject()
}

// Assistant starts a voice question, capturing the selection as context, or
// stops it and pastes the reply.
func (c *Controller) Assistant(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.flow == flowNone:
		c.claimLocked(flowAssistant)
		c.mu.Unlock()

		sel, orig, err := c.probeSelection()
		c.restore(orig)
		if err != nil {
			log.Warnf("assistant: selection probe failed, continuing without: %v", err)
			sel = ""
		}
		c.mu.Lock()
		c.selection = sel
		c.mu.Unlock()

		msg := "Listening... press again to ask, Esc to cancel"
		if strings.TrimSpace(sel) != "" {
			msg = "Listening (with selection)... press again to ask, Esc to cancel"
		}
		return c.startRecording(ctx, msg)
	case c.flow == flowAssistant && c.state == Recording:
		c.state = Processing
		c.message = "Thinking..."
		sel := c.selection
		c.mu.Unlock()
		c.d.Sink.Status(Processing, "Thinking...")
		return c.transcribeThen(ctx, func(ctx context.Context, text string) error {
			reply, err := c.d.Processor.Converse(ctx, text, sel)
			if err != nil {
				return c.fail(err)
			}
			if err := c.deliver(reply); err != nil {
				return c.fail(err)
			}
			return c.finish("Answered")
		})
	}
	c.mu.Unlock()
	return c.reject()
}

// AssistantFromClipboard sends the clipboard text to the assistant and
// pastes the reply.
func (c *Controller) AssistantFromClipboard(ctx context.Context) error {
	if err := c.begin(flowAssistantClip); err != nil {
		return err
	}

	input, err := c.d.Clipboard.Read()
	if err != nil {
		return c.fail(fmt.Errorf("reading clipboard: %w", err))
	}
	if strings.TrimSpace(input) == "" {
		return c.fail(ErrNoClipboardContent)
	}

	c.set(Processing, "Thinking...")
	reply, err := c.d.Processor.Converse(ctx, input, "")
	if err != nil {
		return c.fail(err)
	}
	if err := c.deliver(reply); err != nil {
		return c.fail(err)
	}
	return c.finish("Answered")
}

// Cancel abandons a recording flow that has not reached Processing. It
// reports whether anything was cancelled. A cancel that arrives while the
// recorder is still starting is applied as soon as Start returns.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	if c.flow.records() && c.starting {
		c.cancelPending = true
		c.mu.Unlock()
		log.Info("cancel requested while the recorder starts")
		return true
	}
	if !c.flow.records() || c.state != Recording {
		c.mu.Unlock()
		return false
	}
	c.d.Recorder.Cancel()
	c.abandonLocked()
	return true
}

// abandonLocked returns the controller to Idle after a cancelled recording.
// It releases c.mu.
func (c *Controller) abandonLocked() {
	f, id, started := c.flow, c.id, c.started
	c.flow = flowNone
	c.state = Idle
	c.message = "Cancelled"
	c.selection = ""
	c.gen++
	c.mu.Unlock()

	c.d.Sink.Status(Idle, "Cancelled")
	log.Interaction(id, f.String(), "cancelled", time.Since(started))
}

// Close stops a pending revert and kills any recording.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.revert != nil {
		c.revert.Stop()
	}
	c.mu.Unlock()
	if c.d.Recorder.Active() {
		c.d.Recorder.Cancel()
	}
}

func (c *Controller) begin(f flow) error {
	c.mu.Lock()
	if c.flow != flowNone {
		c.mu.Unlock()
		return c.reject()
	}
	c.claimLocked(f)
	c.mu.Unlock()
	return nil
}

func (c *Controller) claimLocked(f flow) {
	c.flow = f
	c.id = uuid.NewString()[:8]
	c.started = time.Now()
	c.selection = ""
	c.gen++
	log.Infof("interaction %s: %s started", c.id, f)
}

// reject refuses a trigger while another flow runs; the running flow and
// its state are left alone.
func (c *Controller) reject() error {
	c.mu.Lock()
	cur, active := c.state, c.flow
	c.mu.Unlock()
	log.Warnf("trigger rejected: %s in progress", active)
	c.d.Cues.PlayError()
	c.d.Sink.Status(cur, Message(ErrBusy))
	return ErrBusy
}

// startRecording enters Recording under the same lock that ends the
// starting phase, so the cancel hook never sees a half-started flow.
func (c *Controller) startRecording(ctx context.Context, msg string) error {
	c.mu.Lock()
	c.starting = true
	c.cancelPending = false
	c.mu.Unlock()

	err := c.d.Recorder.Start(ctx, func() { c.Cancel() })

	c.mu.Lock()
	c.starting = false
	pending := c.cancelPending
	c.cancelPending = false
	if err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if pending {
		c.d.Recorder.Cancel()
		c.abandonLocked()
		return nil
	}
	c.state = Recording
	c.message = msg
	c.mu.Unlock()

	c.d.Sink.Status(Recording, msg)
	c.d.Cues.PlayStart()
	return nil
}

// transcribeThen stops the recording, transcribes it and hands the text to
// cont. The artifact is removed whatever happens.
func (c *Controller) transcribeThen(ctx context.Context, cont func(ctx context.Context, text string) error) error {
	path, err := c.d.Recorder.Stop()
	if err != nil {
		return c.fail(err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("removing recording: %v", err)
		}
	}()
	c.d.Cues.PlayEnd()

	text, err := c.d.Transcriber.Transcribe(ctx, path)
	if err != nil {
		return c.fail(err)
	}
	return cont(ctx, text)
}

func (c *Controller) deliverTranscript(ctx context.Context, text string) error {
	if c.d.Settings.AutoCorrect() {
		c.set(Processing, "Correcting...")
		corrected, err := c.d.Processor.Correct(ctx, text, c.d.Settings.Profile(), c.d.Settings.Condensed())
		if err != nil {
			return c.fail(err)
		}
		text = corrected
	}
	if err := c.deliver(text); err != nil {
		return c.fail(err)
	}
	return c.finish("Transcribed")
}

// probeSelection copies the focused app's selection through the clipboard.
// orig is the clipboard content before the probe.
func (c *Controller) probeSelection() (sel, orig string, err error) {
	orig, err = c.d.Clipboard.Read()
	if err != nil {
		log.Warnf("reading clipboard before probe: %v", err)
		orig = ""
	}
	if err := c.d.Clipboard.Write(""); err != nil {
		return "", orig, fmt.Errorf("clearing clipboard: %w", err)
	}
	if err := c.d.Clipboard.Copy(); err != nil {
		return "", orig, fmt.Errorf("sending copy: %w", err)
	}
	time.Sleep(c.cfg.CopyDelay)
	sel, err = c.d.Clipboard.Read()
	if err != nil {
		log.Warnf("reading selection: %v", err)
		return "", orig, nil
	}
	return sel, orig, nil
}

func (c *Controller) restore(orig string) {
	if err := c.d.Clipboard.Write(orig); err != nil {
		log.Warnf("restoring clipboard: %v", err)
	}
}

// deliver leaves text on the clipboard and pastes it.
func (c *Controller) deliver(text string) error {
	if err := c.d.Clipboard.Write(text); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	time.Sleep(c.cfg.PasteDelay)
	if err := c.d.Clipboard.Paste(); err != nil {
		return fmt.Errorf("sending paste: %w", err)
	}
	c.mu.Lock()
	f := c.flow
	c.mu.Unlock()
	log.Delivered(f.String(), text)
	return nil
}

func (c *Controller) set(s State, msg string) {
	c.mu.Lock()
	c.state = s
	c.message = msg
	c.mu.Unlock()
	c.d.Sink.Status(s, msg)
}

func (c *Controller) finish(msg string) error {
	c.end(Done, msg, "done")
	return nil
}

func (c *Controller) fail(err error) error {
	if c.d.Recorder.Active() {
		c.d.Recorder.Cancel()
	}
	log.Errorf("interaction failed: %v", err)
	c.end(Error, Message(err), "error")
	c.d.Cues.PlayError()
	return err
}

func (c *Controller) end(s State, msg, outcome string) {
	c.mu.Lock()
	f, id, started := c.flow, c.id, c.started
	c.state = s
	c.message = msg
	c.flow = flowNone
	c.selection = ""
	c.gen++
	gen := c.gen
	if c.revert != nil {
		c.revert.Stop()
	}
	c.revert = time.AfterFunc(c.cfg.RevertDelay, func() { c.revertIdle(gen) })
	c.mu.Unlock()

	c.d.Sink.Status(s, msg)
	log.Interaction(id, f.String(), outcome, time.Since(started))
}

func (c *Controller) revertIdle(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || (c.state != Done && c.state != Error) {
		c.mu.Unlock()
		return
	}
	c.state = Idle
	c.message = ""
	c.mu.Unlock()
	c.d.Sink.Status(Idle, "")
}
