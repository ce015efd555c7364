// Package settings persists user preferences in a bbolt database: boolean
// flags, string prefs and per-command hotkey bindings.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"hark/command"
	"hark/log"
	"hark/processor"
	"hark/shortcut"
)

var (
	bucketFlags     = []byte("flags")
	bucketPrefs     = []byte("prefs")
	bucketShortcuts = []byte("shortcuts")
)

const (
	FlagAutoCorrect = "auto_correct"
	FlagCondensed   = "condensed"

	PrefDevice  = "device"
	PrefProfile = "profile"
)

var ErrUnknownFlag = errors.New("unknown flag")

var flagDefaults = map[string]bool{
	FlagAutoCorrect: false,
	FlagCondensed:   false,
}

func KnownFlag(name string) bool {
	_, ok := flagDefaults[name]
	return ok
}

type Store struct {
	db *bolt.DB
}

// Open opens or creates the settings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFlags, bucketPrefs, bucketShortcuts} {
			if _, e := tx.CreateBucketIfNotExists(name); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(bucket []byte, key string) ([]byte, bool) {
	var out []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil
}

func (s *Store) put(bucket []byte, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
}

// Flag returns the named flag, falling back to its default.
func (s *Store) Flag(name string) bool {
	v, ok := s.get(bucketFlags, name)
	if !ok || len(v) != 1 {
		return flagDefaults[name]
	}
	return v[0] == '1'
}

func (s *Store) SetFlag(name string, enabled bool) error {
	if !KnownFlag(name) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	v := []byte("0")
	if enabled {
		v = []byte("1")
	}
	return s.put(bucketFlags, name, v)
}

// Toggle flips a flag and returns the new value.
func (s *Store) Toggle(name string) (bool, error) {
	next := !s.Flag(name)
	if err := s.SetFlag(name, next); err != nil {
		return false, err
	}
	return next, nil
}

func (s *Store) Flags() map[string]bool {
	out := make(map[string]bool, len(flagDefaults))
	for name := range flagDefaults {
		out[name] = s.Flag(name)
	}
	return out
}

func (s *Store) AutoCorrect() bool { return s.Flag(FlagAutoCorrect) }
func (s *Store) Condensed() bool   { return s.Flag(FlagCondensed) }

func (s *Store) Pref(name string) string {
	v, _ := s.get(bucketPrefs, name)
	return string(v)
}

func (s *Store) SetPref(name, value string) error {
	return s.put(bucketPrefs, name, []byte(value))
}

func (s *Store) Profile() string {
	if p := s.Pref(PrefProfile); p != "" {
		return p
	}
	return processor.DefaultProfile
}

func (s *Store) Device() string { return s.Pref(PrefDevice) }

// Bindings returns the default bindings overlaid with persisted ones.
// Malformed entries are skipped.
func (s *Store) Bindings() map[string]shortcut.Binding {
	out := command.Defaults()
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShortcuts).ForEach(func(k, v []byte) error {
			var b shortcut.Binding
			if err := json.Unmarshal(v, &b); err != nil {
				log.Warnf("settings: skipping malformed binding %s: %v", k, err)
				return nil
			}
			if !b.IsZero() {
				nb, err := shortcut.Parse(b.String())
				if err != nil {
					log.Warnf("settings: skipping invalid binding %s: %v", k, err)
					return nil
				}
				b = nb
			}
			out[string(k)] = b
			return nil
		})
	})
	return out
}

// SetBinding persists a binding for a known command. A zero binding
// explicitly unbinds the command.
func (s *Store) SetBinding(id string, b shortcut.Binding) error {
	if !command.Known(id) {
		return fmt.Errorf("%w: %s", command.ErrUnknown, id)
	}
	enc, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.put(bucketShortcuts, id, enc)
}
