package hotkey

import (
	"sync"

	"hark/shortcut"
)

// Transient is a hotkey bound only for a bounded period, such as Escape
// while a recording runs. It is registered on Bind and released on Unbind
// so the key behaves normally the rest of the time.
type Transient struct {
	newHotkey Factory
	binding   shortcut.Binding

	mu   sync.Mutex
	hk   Hotkey
	stop chan struct{}
}

func NewTransient(f Factory, b shortcut.Binding) *Transient {
	return &Transient{newHotkey: f, binding: b}
}

// Bind registers the hotkey and calls fn on its first keydown. A previous
// binding is released first.
func (t *Transient) Bind(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unbindLocked()

	hk, err := t.newHotkey(t.binding)
	if err != nil {
		return err
	}
	if err := hk.Register(); err != nil {
		return err
	}
	stop := make(chan struct{})
	t.hk = hk
	t.stop = stop

	go func() {
		select {
		case <-stop:
		case <-hk.Keydown():
			go fn()
		}
	}()
	return nil
}

func (t *Transient) Unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unbindLocked()
}

func (t *Transient) Bound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hk != nil
}

func (t *Transient) unbindLocked() {
	if t.hk == nil {
		return
	}
	close(t.stop)
	t.hk.Unregister()
	t.hk = nil
	t.stop = nil
}
