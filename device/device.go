// Package device enumerates audio capture devices and lets the user pick
// one interactively.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/term"
)

// Info describes a capture device. ID is the value ffmpeg expects as its
// input device; Name is for display.
type Info struct {
	ID   string
	Name string
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth",
}

// IsBluetooth guesses from the name whether a device is a headset, whose
// microphone runs in a low-quality profile while capturing.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return slices.Contains(words, "bt")
}

type keyAction int

const (
	keyNone keyAction = iota
	keyUp
	keyDown
	keyEnter
	keyAbort
)

func decodeKey(b []byte) keyAction {
	switch {
	case len(b) == 1 && b[0] == 13:
		return keyEnter
	case len(b) == 1 && (b[0] == 3 || b[0] == 'q'):
		return keyAbort
	case len(b) == 1 && b[0] == 'k':
		return keyUp
	case len(b) == 1 && b[0] == 'j':
		return keyDown
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'A':
		return keyUp
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'B':
		return keyDown
	}
	return keyNone
}

var ErrAborted = errors.New("selection aborted")

// choose runs the picker loop over keys and returns the selected index.
func choose(devices []Info, keys io.Reader, out io.Writer) (int, error) {
	cursor := 0
	render := func() {
		fmt.Fprint(out, "\r\x1b[J")
		fmt.Fprint(out, "Select input device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Fprintf(out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Fprintf(out, "    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := keys.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		switch decodeKey(buf[:n]) {
		case keyEnter:
			fmt.Fprint(out, "\r\n")
			return cursor, nil
		case keyAbort:
			fmt.Fprint(out, "\r\n")
			return 0, ErrAborted
		case keyUp:
			cursor = max(cursor-1, 0)
		case keyDown:
			cursor = min(cursor+1, len(devices)-1)
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		render()
	}
}

// Select presents an interactive picker on the terminal. A single device is
// returned without prompting.
func Select(devices []Info) (Info, error) {
	if len(devices) == 0 {
		return Info{}, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return Info{}, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	i, err := choose(devices, os.Stdin, os.Stdout)
	if err != nil {
		return Info{}, err
	}
	return devices[i], nil
}
