package main

import (
	"bytes"
	"strings"
	"testing"

	"hark/controller"
)

type captureSink struct{ got []controller.State }

func (c *captureSink) Status(s controller.State, _ string) { c.got = append(c.got, s) }

func TestSinksFanOut(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	s := sinks{a, b}
	s.Status(controller.Recording, "Recording...")
	s.Status(controller.Done, "Transcribed")
	for _, c := range []*captureSink{a, b} {
		if len(c.got) != 2 || c.got[1] != controller.Done {
			t.Errorf("sink got %v", c.got)
		}
	}
}

func TestInteractionCounter(t *testing.T) {
	var c interactionCounter
	for _, s := range []controller.State{controller.Recording, controller.Processing, controller.Done, controller.Idle, controller.Error, controller.Done} {
		c.Status(s, "")
	}
	if got := c.count(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestLineSink(t *testing.T) {
	var buf bytes.Buffer
	s := lineSink{newLineWriter(&buf)}
	s.Status(controller.Error, "No text selected")
	if got := strings.TrimSpace(buf.String()); got != "STATUS error No text selected" {
		t.Errorf("line = %q", got)
	}
}
