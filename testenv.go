package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"hark/command"
	"hark/controller"
	"hark/hotkey"
)

const waitTimeout = 30 * time.Second

// memClipboard stands in for the system clipboard in test mode. The copy
// keystroke captures the text set with SELECT; paste prints the clipboard.
type memClipboard struct {
	out *lineWriter

	mu        sync.Mutex
	content   string
	selection string
}

func newMemClipboard(out *lineWriter) *memClipboard {
	return &memClipboard{out: out}
}

func (c *memClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *memClipboard) Write(text string) error {
	c.mu.Lock()
	c.content = text
	c.mu.Unlock()
	return nil
}

func (c *memClipboard) Copy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection != "" {
		c.content = c.selection
	}
	return nil
}

func (c *memClipboard) Paste() error {
	c.mu.Lock()
	text := c.content
	// Pasting replaces the selection.
	c.selection = ""
	c.mu.Unlock()
	c.out.Printf("PASTE %s", text)
	return nil
}

func (c *memClipboard) setSelection(text string) {
	c.mu.Lock()
	c.selection = text
	c.mu.Unlock()
}

// testMode drives the controller from stdin:
//
//	TRIGGER <id>   fire a command
//	CANCEL         press the cancel key
//	WAIT           block until every fired command returned and state is idle
//	SLEEP <ms>
//	CLIP <text>    set the clipboard
//	SELECT <text>  set the text the copy keystroke captures
//	STATE          print the current state
//	QUIT
type testMode struct {
	ctx      context.Context
	ctrl     *controller.Controller
	registry *command.Registry
	keys     *hotkey.FakeFactory
	clip     *memClipboard
	out      *lineWriter

	inflight sync.WaitGroup
}

var errQuit = errors.New("quit")

func (m *testMode) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := m.exec(strings.TrimSpace(scanner.Text())); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			m.out.Printf("ERROR %v", err)
		}
		if m.ctx.Err() != nil {
			break
		}
	}
	m.inflight.Wait()
	text, _ := m.clip.Read()
	m.out.Printf("CLIPBOARD %s", text)
	return scanner.Err()
}

func (m *testMode) exec(line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
		return nil
	case "TRIGGER":
		if !m.registry.Has(arg) {
			return errors.New("unknown command " + arg)
		}
		m.inflight.Add(1)
		go func() {
			defer m.inflight.Done()
			m.registry.Fire(m.ctx, arg)
		}()
	case "CANCEL":
		hk := m.keys.Live(hotkey.CancelBinding.String())
		if hk == nil {
			m.out.Printf("CANCEL ignored")
			return nil
		}
		hk.SimKeydown()
	case "WAIT":
		return m.wait()
	case "SLEEP":
		ms, err := strconv.Atoi(arg)
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	case "CLIP":
		return m.clip.Write(arg)
	case "SELECT":
		m.clip.setSelection(arg)
	case "STATE":
		m.out.Printf("STATE %s", m.ctrl.State())
	case "QUIT":
		return errQuit
	default:
		return errors.New("unknown test command " + cmd)
	}
	return nil
}

func (m *testMode) wait() error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	deadline := time.After(waitTimeout)
	select {
	case <-done:
	case <-deadline:
		return errors.New("WAIT timed out")
	}
	for m.ctrl.State() != controller.Idle {
		select {
		case <-deadline:
			return errors.New("WAIT timed out")
		case <-time.After(20 * time.Millisecond):
		}
	}
	return nil
}
