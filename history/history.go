// Package history keeps the assistant conversation as a bounded, persisted
// list of turns.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"hark/log"
)

const DefaultCapacity = 50

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is safe for concurrent use. Every mutation is written to disk
// before it returns; write failures are logged, never returned.
type History struct {
	mu       sync.Mutex
	path     string
	capacity int
	turns    []Turn
}

// Open loads the history at path. A missing or unreadable file yields an
// empty history. An oversized file is trimmed to its newest turns.
func Open(path string, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &History{path: path, capacity: capacity}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return h
	case err != nil:
		log.Warnf("history: read %s: %v", path, err)
		return h
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		log.Warnf("history: ignoring corrupt %s: %v", path, err)
		return h
	}
	h.turns = turns
	if h.trimLocked() {
		h.persistLocked()
	}
	return h
}

func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	h.trimLocked()
	h.persistLocked()
}

// Turns returns a copy, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Turn(nil), h.turns...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	h.persistLocked()
}

func (h *History) trimLocked() bool {
	over := len(h.turns) - h.capacity
	if over <= 0 {
		return false
	}
	h.turns = append([]Turn(nil), h.turns[over:]...)
	return true
}

func (h *History) persistLocked() {
	if h.path == "" {
		return
	}
	if err := writeAtomic(h.path, h.turns); err != nil {
		log.Warnf("history: persist: %v", err)
	}
}

func writeAtomic(path string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
