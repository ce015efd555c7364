package main

import (
	"fmt"
	"io"
	"sync"

	"hark/controller"
	"hark/log"
	"hark/notify"
)

// sinks fans controller status out to every display.
type sinks []controller.StatusSink

func (s sinks) Status(state controller.State, message string) {
	for _, sink := range s {
		sink.Status(state, message)
	}
}

type logSink struct{}

func (logSink) Status(state controller.State, message string) {
	if state == controller.Error {
		log.Warnf("status: %s: %s", state, message)
		return
	}
	log.Infof("status: %s: %s", state, message)
}

// notifySink flashes Error messages as desktop notifications.
type notifySink struct {
	n *notify.Notifier
}

func (s notifySink) Status(state controller.State, message string) {
	if state == controller.Error && message != "" {
		s.n.Error(message)
	}
}

// interactionCounter counts completed flows for the session summary.
type interactionCounter struct {
	mu sync.Mutex
	n  int
}

func (c *interactionCounter) Status(state controller.State, _ string) {
	if state != controller.Done {
		return
	}
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *interactionCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// lineWriter serialises whole lines from concurrent flows.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w}
}

func (l *lineWriter) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format+"\n", args...)
}

// lineSink prints one STATUS line per transition, for headless runs.
type lineSink struct {
	out *lineWriter
}

func (s lineSink) Status(state controller.State, message string) {
	s.out.Printf("STATUS %s %s", state, message)
}
