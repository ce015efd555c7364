package clipboard

import "github.com/micmonay/keybd_event"

const settle = 0

const modifierName = "Ctrl"

func withShortcutModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }
