package main

import (
	"errors"
	"path/filepath"
	"testing"

	"hark/command"
	"hark/settings"
)

func TestParseBind(t *testing.T) {
	tests := []struct {
		input   string
		wantID  string
		wantB   string
		wantErr error
	}{
		{"transcribe=ctrl+alt+r", command.Transcribe, "ctrl+alt+r", nil},
		{" grammar-fix = shift+ctrl+g", command.GrammarFix, "ctrl+shift+g", nil},
		{"clear-history=", command.ClearHistory, "", nil},
		{"nope=ctrl+g", "", "", command.ErrUnknown},
	}
	for _, tt := range tests {
		id, b, err := parseBind(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("parseBind(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseBind(%q) error = %v", tt.input, err)
			continue
		}
		if id != tt.wantID || b.String() != tt.wantB {
			t.Errorf("parseBind(%q) = %s, %q; want %s, %q", tt.input, id, b.String(), tt.wantID, tt.wantB)
		}
	}

	for _, bad := range []string{"transcribe", "=ctrl+g", "transcribe=hyper+x"} {
		if _, _, err := parseBind(bad); err == nil {
			t.Errorf("parseBind(%q) should fail", bad)
		}
	}
}

func TestBindFlagsRejectsInvalid(t *testing.T) {
	var b bindFlags
	if err := b.Set("transcribe=ctrl+alt+r"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("transcribe"); err == nil {
		t.Error("Set accepted a value without a binding")
	}
	if len(b) != 1 {
		t.Errorf("len = %d, want 1", len(b))
	}
}

func TestConfigDirFlag(t *testing.T) {
	dir := t.TempDir()
	got, err := configDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("configDir(%q) = %q", dir, got)
	}
}

func openStore(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestApplyStartupSettings(t *testing.T) {
	store := openStore(t)
	o := options{
		binds:   bindFlags{"transcribe=ctrl+alt+r", "assistant="},
		profile: "formal",
	}
	if err := applyStartupSettings(store, o); err != nil {
		t.Fatal(err)
	}
	b := store.Bindings()
	if got := b[command.Transcribe].String(); got != "ctrl+alt+r" {
		t.Errorf("transcribe = %q", got)
	}
	if !b[command.Assistant].IsZero() {
		t.Errorf("assistant should be unbound, got %q", b[command.Assistant].String())
	}
	if got := store.Profile(); got != "formal" {
		t.Errorf("profile = %q", got)
	}

	if err := applyStartupSettings(store, options{profile: "pirate"}); err == nil {
		t.Error("unknown profile accepted")
	}
}

func TestResolveDevice(t *testing.T) {
	store := openStore(t)
	if err := store.SetPref(settings.PrefDevice, "saved-mic"); err != nil {
		t.Fatal(err)
	}

	got, err := resolveDevice(store, options{device: "lavfi:anullsrc"})
	if err != nil || got != "lavfi:anullsrc" {
		t.Errorf("flag device = %q, %v", got, err)
	}
	got, err = resolveDevice(store, options{})
	if err != nil || got != "saved-mic" {
		t.Errorf("saved device = %q, %v", got, err)
	}
}

func TestDeviceLine(t *testing.T) {
	if got := deviceLine(""); got != "mic: system default" {
		t.Errorf("deviceLine(\"\") = %q", got)
	}
	if got := deviceLine("bluez_input.AirPods"); got != "mic: bluez_input.AirPods (BT!)" {
		t.Errorf("deviceLine(bt) = %q", got)
	}
}
