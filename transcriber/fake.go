package transcriber

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FakeTranscriber returns a fixed transcript. It checks the artifact exists
// so callers exercise the real file lifecycle.
type FakeTranscriber struct {
	text string
	err  error

	mu    sync.Mutex
	calls []string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string  { return "fake" }
func (f *FakeTranscriber) Model() string { return "fake" }

func (f *FakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fake transcriber: %w", err)
	}
	if f.err != nil {
		return "", fmt.Errorf("fake transcriber error: %w", f.err)
	}
	if f.text == "" {
		return "", ErrEmptyResult
	}
	return f.text, nil
}

func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
