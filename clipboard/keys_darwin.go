package clipboard

import "github.com/micmonay/keybd_event"

const settle = 0

const modifierName = "Cmd"

func withShortcutModifier(kb *keybd_event.KeyBonding) { kb.HasSuper(true) }
