// Package hotkey registers global keyboard shortcuts and maps them to commands.
package hotkey

import "hark/shortcut"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Factory builds an unregistered Hotkey for a binding.
type Factory func(b shortcut.Binding) (Hotkey, error)

// CancelBinding is bound only while a recording is active.
var CancelBinding = shortcut.Binding{Key: "escape"}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
