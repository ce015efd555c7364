package device

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM4", true},
		{"Headset (BT)", true},
		{"Headset [bt]", true},
		{"Car BT", true},
		{"BT-Mic 2", true},
		{"Subtitle capture", false},
		{"Built-in Microphone", false},
		{"alsa_input.pci-0000_00_1f.3.analog-stereo", false},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// keyReader hands out one keystroke per Read like a raw terminal.
type keyReader struct{ keys []string }

func (k *keyReader) Read(p []byte) (int, error) {
	if len(k.keys) == 0 {
		return 0, io.EOF
	}
	n := copy(p, k.keys[0])
	k.keys = k.keys[1:]
	return n, nil
}

func TestChoose(t *testing.T) {
	devices := []Info{{ID: "a", Name: "First"}, {ID: "b", Name: "Second"}, {ID: "c", Name: "Third"}}
	tests := []struct {
		name    string
		keys    []string
		want    int
		wantErr error
	}{
		{"enter picks first", []string{"\r"}, 0, nil},
		{"arrow down", []string{"\x1b[B", "\r"}, 1, nil},
		{"clamped at end", []string{"j", "j", "j", "j", "\r"}, 2, nil},
		{"clamped at start", []string{"k", "\x1b[A", "\r"}, 0, nil},
		{"down then up", []string{"j", "j", "k", "\r"}, 1, nil},
		{"ctrl-c aborts", []string{"j", "\x03"}, 0, ErrAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := choose(devices, &keyReader{keys: tt.keys}, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("choose = %d, want %d", got, tt.want)
			}
			if !strings.Contains(out.String(), "Second") {
				t.Error("device list not rendered")
			}
		})
	}
}

func TestChooseEOF(t *testing.T) {
	_, err := choose([]Info{{Name: "a"}, {Name: "b"}}, &keyReader{}, io.Discard)
	if err == nil {
		t.Error("expected error on EOF")
	}
}

func TestSelectSingle(t *testing.T) {
	got, err := Select([]Info{{ID: "only", Name: "Only"}})
	if err != nil || got.ID != "only" {
		t.Errorf("Select = %+v, %v", got, err)
	}
	if _, err := Select(nil); err == nil {
		t.Error("Select(nil) should fail")
	}
}
