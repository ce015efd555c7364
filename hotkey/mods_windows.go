package hotkey

import (
	"golang.design/x/hotkey"

	"hark/shortcut"
)

var xMods = map[string]hotkey.Modifier{
	shortcut.Ctrl:  hotkey.ModCtrl,
	shortcut.Shift: hotkey.ModShift,
	shortcut.Alt:   hotkey.ModAlt,
	shortcut.Super: hotkey.ModWin,
}
