//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hark/shortcut"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyRepeat  = 2
)

const inputEventSize = 24

// evdev key codes from linux/input-event-codes.h.
var evdevKeys = map[string]uint16{
	"escape": 1, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"tab": 15, "q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"return": 28, "a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50, "space": 57,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88, "up": 103, "left": 105, "right": 106, "down": 108, "delete": 111,
}

type modMask uint8

const (
	modCtrl modMask = 1 << iota
	modShift
	modAlt
	modSuper
)

var evdevMods = map[uint16]modMask{
	29: modCtrl, 97: modCtrl,
	42: modShift, 54: modShift,
	56: modAlt, 100: modAlt,
	125: modSuper, 126: modSuper,
}

func maskOf(b shortcut.Binding) modMask {
	var m modMask
	for _, mod := range b.Mods {
		switch mod {
		case shortcut.Ctrl:
			m |= modCtrl
		case shortcut.Shift:
			m |= modShift
		case shortcut.Alt:
			m |= modAlt
		case shortcut.Super:
			m |= modSuper
		}
	}
	return m
}

// matcher tracks modifier state for one keyboard and reports edges of the
// bound chord. Extra modifiers prevent a match so ctrl+shift+a never fires
// a ctrl+a binding.
type matcher struct {
	want    modMask
	code    uint16
	held    map[uint16]bool
	keyHeld bool
}

func newMatcher(want modMask, code uint16) *matcher {
	return &matcher{want: want, code: code, held: make(map[uint16]bool)}
}

func (m *matcher) mods() modMask {
	var mask modMask
	for code, down := range m.held {
		if down {
			mask |= evdevMods[code]
		}
	}
	return mask
}

func (m *matcher) feed(code uint16, value int32) (down, up bool) {
	if _, isMod := evdevMods[code]; isMod {
		m.held[code] = value != keyRelease
		return false, false
	}
	if code != m.code || value == keyRepeat {
		return false, false
	}
	switch {
	case value == keyPress && !m.keyHeld && m.mods() == m.want:
		m.keyHeld = true
		return true, false
	case value == keyRelease && m.keyHeld:
		m.keyHeld = false
		return false, true
	}
	return false, false
}

type linuxHotkey struct {
	want    modMask
	code    uint16
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New reads keyboards through evdev so bindings work on X11 and Wayland
// alike. The user must be able to read /dev/input/event*.
func New(b shortcut.Binding) (Hotkey, error) {
	code, ok := evdevKeys[b.Key]
	if !ok {
		return nil, fmt.Errorf("key %q not supported", b.Key)
	}
	return &linuxHotkey{
		want:    maskOf(b),
		code:    code,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	m := newMatcher(h.want, h.code)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			code := binary.LittleEndian.Uint16(buf[i+18:])
			value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
			down, up := m.feed(code, value)
			if down {
				signal(h.keydown)
			}
			if up {
				signal(h.keyup)
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *linuxHotkey) Keyup() <-chan struct{}   { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
