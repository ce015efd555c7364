// Package clipboard reads and writes the system clipboard and sends the
// copy and paste keystrokes to the focused application.
package clipboard

import (
	"fmt"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
	kbMu   sync.Mutex
)

// Init creates the virtual keyboard. It is called lazily by Copy and Paste
// but doing it at startup hides the device settle time.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil && settle > 0 {
			time.Sleep(settle)
		}
	})
	return kbErr
}

func Read() (string, error) {
	return cb.ReadAll()
}

func Write(text string) error {
	return cb.WriteAll(text)
}

// Copy sends the platform copy shortcut (Ctrl+C, Cmd+C on macOS).
func Copy() error {
	return chord(keybd_event.VK_C)
}

// Paste sends the platform paste shortcut (Ctrl+V, Cmd+V on macOS).
func Paste() error {
	return chord(keybd_event.VK_V)
}

func chord(key int) error {
	if err := Init(); err != nil {
		return fmt.Errorf("keyboard events: %w", err)
	}
	kbMu.Lock()
	defer kbMu.Unlock()
	kb.Clear()
	kb.SetKeys(key)
	withShortcutModifier(&kb)
	return kb.Launching()
}

// System adapts the package functions to the controller's clipboard.
type System struct{}

func (System) Read() (string, error)   { return Read() }
func (System) Write(text string) error { return Write(text) }
func (System) Copy() error             { return Copy() }
func (System) Paste() error            { return Paste() }

// Verify round-trips a value through the clipboard and checks the keyboard
// binding, restoring the previous clipboard content.
func Verify() (string, error) {
	prev, err := Read()
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	defer Write(prev)

	const probe = "hark-clipboard-check"
	if err := Write(probe); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	got, err := Read()
	if err != nil {
		return "", fmt.Errorf("read back: %w", err)
	}
	if got != probe {
		return "", fmt.Errorf("read back %q, want %q", got, probe)
	}
	if err := Init(); err != nil {
		return "", fmt.Errorf("keyboard events: %w", err)
	}
	return "clipboard round-trip OK, keyboard events OK (" + modifierName + ")", nil
}
