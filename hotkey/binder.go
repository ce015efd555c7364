package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"hark/shortcut"
)

type boundKey struct {
	id      string
	binding shortcut.Binding
	hk      Hotkey
	stop    chan struct{}
}

// Binder owns the set of registered command hotkeys. Apply replaces the
// whole mapping; there is no incremental add or remove.
type Binder struct {
	newHotkey Factory

	mu    sync.Mutex
	bound []*boundKey
}

func NewBinder(f Factory) *Binder {
	return &Binder{newHotkey: f}
}

// Apply unregisters every hotkey and registers bindings again. Each keydown
// calls fire with the command id on its own goroutine. Bindings that fail to
// register are skipped and reported together.
func (b *Binder) Apply(bindings map[string]shortcut.Binding, fire func(id string)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()

	ids := make([]string, 0, len(bindings))
	for id := range bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[string]string)
	var errs []error
	for _, id := range ids {
		bd := bindings[id]
		if bd.IsZero() {
			continue
		}
		if other, dup := seen[bd.String()]; dup {
			errs = append(errs, fmt.Errorf("%s: %s already bound to %s", id, bd, other))
			continue
		}
		hk, err := b.newHotkey(bd)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", id, bd, err))
			continue
		}
		if err := hk.Register(); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", id, bd, err))
			continue
		}
		seen[bd.String()] = id
		k := &boundKey{id: id, binding: bd, hk: hk, stop: make(chan struct{})}
		b.bound = append(b.bound, k)
		go listen(k, fire)
	}
	return errors.Join(errs...)
}

func listen(k *boundKey, fire func(id string)) {
	for {
		select {
		case <-k.stop:
			return
		case <-k.hk.Keydown():
			go fire(k.id)
		case <-k.hk.Keyup():
		}
	}
}

// Bound returns the registered command ids and their bindings.
func (b *Binder) Bound() map[string]shortcut.Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]shortcut.Binding, len(b.bound))
	for _, k := range b.bound {
		out[k.id] = k.binding
	}
	return out
}

func (b *Binder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

func (b *Binder) releaseLocked() {
	for _, k := range b.bound {
		close(k.stop)
		k.hk.Unregister()
	}
	b.bound = nil
}
