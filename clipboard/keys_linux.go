package clipboard

import (
	"time"

	"github.com/micmonay/keybd_event"
)

// The uinput device needs time before the compositor accepts its events.
const settle = 2 * time.Second

const modifierName = "Ctrl"

func withShortcutModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }
