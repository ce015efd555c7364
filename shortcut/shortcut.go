// Package shortcut models keyboard bindings independently of any hotkey backend.
package shortcut

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Modifier names in canonical order.
const (
	Ctrl  = "ctrl"
	Shift = "shift"
	Alt   = "alt"
	Super = "super"
)

var modOrder = []string{Ctrl, Shift, Alt, Super}

var modAliases = map[string]string{
	"ctrl":    Ctrl,
	"control": Ctrl,
	"shift":   Shift,
	"alt":     Alt,
	"option":  Alt,
	"opt":     Alt,
	"super":   Super,
	"cmd":     Super,
	"command": Super,
	"win":     Super,
	"meta":    Super,
}

var keyAliases = map[string]string{
	"esc":   "escape",
	"enter": "return",
	"del":   "delete",
}

// Binding is a modifier set plus one key, e.g. ctrl+shift+g.
type Binding struct {
	Mods []string `json:"mods"`
	Key  string   `json:"key"`
}

var ErrEmpty = errors.New("empty binding")

// Parse reads the textual form "ctrl+shift+g". Modifier order is irrelevant;
// the result is normalised.
func Parse(s string) (Binding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Binding{}, ErrEmpty
	}
	parts := strings.Split(s, "+")
	var b Binding
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Binding{}, fmt.Errorf("binding %q: empty component", s)
		}
		if i == len(parts)-1 {
			if _, isMod := modAliases[p]; isMod {
				return Binding{}, fmt.Errorf("binding %q: missing key after modifiers", s)
			}
			if alias, ok := keyAliases[p]; ok {
				p = alias
			}
			if !IsKnownKey(p) {
				return Binding{}, fmt.Errorf("binding %q: unknown key %q", s, p)
			}
			b.Key = p
			break
		}
		mod, ok := modAliases[p]
		if !ok {
			return Binding{}, fmt.Errorf("binding %q: unknown modifier %q", s, p)
		}
		if !slices.Contains(b.Mods, mod) {
			b.Mods = append(b.Mods, mod)
		}
	}
	b.normalize()
	return b, nil
}

func MustParse(s string) Binding {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Binding) normalize() {
	slices.SortFunc(b.Mods, func(x, y string) int {
		return slices.Index(modOrder, x) - slices.Index(modOrder, y)
	})
}

func (b Binding) IsZero() bool { return b.Key == "" }

func (b Binding) String() string {
	if b.IsZero() {
		return ""
	}
	return strings.Join(append(slices.Clone(b.Mods), b.Key), "+")
}

func (b Binding) Has(mod string) bool { return slices.Contains(b.Mods, mod) }

// Label renders the binding for display, e.g. "Ctrl+Shift+Space".
func (b Binding) Label() string {
	if b.IsZero() {
		return "unbound"
	}
	parts := make([]string, 0, len(b.Mods)+1)
	for _, m := range append(slices.Clone(b.Mods), b.Key) {
		if len(m) <= 1 {
			parts = append(parts, strings.ToUpper(m))
			continue
		}
		parts = append(parts, strings.ToUpper(m[:1])+m[1:])
	}
	return strings.Join(parts, "+")
}

// IsKnownKey reports whether key names a key every hotkey backend can register.
func IsKnownKey(key string) bool {
	if len(key) == 1 {
		c := key[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	switch key {
	case "space", "return", "escape", "tab", "delete", "up", "down", "left", "right":
		return true
	}
	if strings.HasPrefix(key, "f") {
		var n int
		if _, err := fmt.Sscanf(key, "f%d", &n); err == nil && n >= 1 && n <= 12 && key == fmt.Sprintf("f%d", n) {
			return true
		}
	}
	return false
}
