package hotkey

import (
	"sync"

	"hark/shortcut"
)

type FakeHotkey struct {
	Binding shortcut.Binding

	mu         sync.Mutex
	registered bool
	keydown    chan struct{}
	keyup      chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	f.mu.Lock()
	f.registered = true
	f.mu.Unlock()
	return nil
}

func (f *FakeHotkey) Unregister() {
	f.mu.Lock()
	f.registered = false
	f.mu.Unlock()
}

func (f *FakeHotkey) Registered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered
}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }

// FakeFactory hands out FakeHotkeys and remembers them by binding.
type FakeFactory struct {
	mu      sync.Mutex
	created []*FakeHotkey
}

func (ff *FakeFactory) New(b shortcut.Binding) (Hotkey, error) {
	hk := NewFake()
	hk.Binding = b
	ff.mu.Lock()
	ff.created = append(ff.created, hk)
	ff.mu.Unlock()
	return hk, nil
}

// Live returns the most recently created registered hotkey for binding s.
func (ff *FakeFactory) Live(s string) *FakeHotkey {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	for i := len(ff.created) - 1; i >= 0; i-- {
		hk := ff.created[i]
		if hk.Binding.String() == s && hk.Registered() {
			return hk
		}
	}
	return nil
}

func (ff *FakeFactory) Created() []*FakeHotkey {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return append([]*FakeHotkey(nil), ff.created...)
}
