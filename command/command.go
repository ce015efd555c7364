// Package command names the user-triggerable actions and dispatches them.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"hark/shortcut"
)

const (
	GrammarFix         = "grammar-fix"
	Transcribe         = "transcribe"
	Assistant          = "assistant"
	AssistantClipboard = "assistant-clipboard"
	ToggleAutoCorrect  = "toggle-auto-correct"
	ToggleCondensed    = "toggle-condensed"
	ClearHistory       = "clear-history"
)

// IDs lists every command in display order.
var IDs = []string{
	GrammarFix,
	Transcribe,
	Assistant,
	AssistantClipboard,
	ToggleAutoCorrect,
	ToggleCondensed,
	ClearHistory,
}

var titles = map[string]string{
	GrammarFix:         "Fix grammar of selection",
	Transcribe:         "Toggle voice transcription",
	Assistant:          "Toggle voice assistant",
	AssistantClipboard: "Ask assistant about clipboard",
	ToggleAutoCorrect:  "Toggle auto-correct of transcripts",
	ToggleCondensed:    "Toggle condensed corrections",
	ClearHistory:       "Clear conversation history",
}

func Title(id string) string {
	return titles[id]
}

func Known(id string) bool {
	_, ok := titles[id]
	return ok
}

// Defaults returns the out-of-the-box bindings. Toggles and clear-history
// start unbound.
func Defaults() map[string]shortcut.Binding {
	return map[string]shortcut.Binding{
		GrammarFix:         shortcut.MustParse("ctrl+shift+g"),
		Transcribe:         shortcut.MustParse("ctrl+shift+space"),
		Assistant:          shortcut.MustParse("ctrl+shift+a"),
		AssistantClipboard: shortcut.MustParse("ctrl+shift+j"),
		ToggleAutoCorrect:  {},
		ToggleCondensed:    {},
		ClearHistory:       {},
	}
}

var ErrUnknown = errors.New("unknown command")

type Handler func(ctx context.Context) error

// Registry maps command ids to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	onError  func(id string, err error)
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Handle(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// OnError installs a callback for handler failures seen by Fire.
func (r *Registry) OnError(fn func(id string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch runs the handler for id synchronously.
func (r *Registry) Dispatch(ctx context.Context, id string) error {
	r.mu.RLock()
	h, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, id)
	}
	return h(ctx)
}

// Fire dispatches id and reports a failure to the OnError callback. It is
// the shape hotkey and HTTP triggers expect.
func (r *Registry) Fire(ctx context.Context, id string) {
	err := r.Dispatch(ctx, id)
	if err == nil {
		return
	}
	r.mu.RLock()
	fn := r.onError
	r.mu.RUnlock()
	if fn != nil {
		fn(id, err)
	}
}
