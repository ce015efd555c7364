package doctor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunChecks(t *testing.T) {
	var out bytes.Buffer
	checks := []check{
		{"first", func(context.Context) (string, error) { return "fine", nil }},
		{"second", func(context.Context) (string, error) { return "", errors.New("broken") }},
		{"third", func(context.Context) (string, error) { return "also fine", nil }},
	}
	if runChecks(context.Background(), &out, checks) {
		t.Error("runChecks = true with a failing check")
	}
	got := out.String()
	for _, want := range []string{"[1/3] first", "PASS: fine", "[2/3] second", "FAIL: broken", "PASS: also fine"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunChecksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	ran := false
	checks := []check{{"only", func(context.Context) (string, error) { ran = true; return "", nil }}}
	if runChecks(ctx, &out, checks) {
		t.Error("runChecks = true after cancel")
	}
	if ran {
		t.Error("check ran after cancel")
	}
}

func TestCheckKeys(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		stt     string
		wantErr bool
	}{
		{"openai only", map[string]string{"OPENAI_API_KEY": "k"}, "", false},
		{"openai stt", map[string]string{"OPENAI_API_KEY": "k"}, "openai", false},
		{"groq stt", map[string]string{"OPENAI_API_KEY": "k", "GROQ_API_KEY": "g"}, "groq", false},
		{"groq missing", map[string]string{"OPENAI_API_KEY": "k"}, "groq", true},
		{"nothing", map[string]string{}, "", true},
		{"unknown stt", map[string]string{"OPENAI_API_KEY": "k"}, "deepgram", true},
	}
	orig := getenv
	t.Cleanup(func() { getenv = orig })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv = func(k string) string { return tt.env[k] }
			_, err := checkKeys(tt.stt)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkKeys(%q) error = %v, wantErr %v", tt.stt, err, tt.wantErr)
			}
		})
	}
}

func TestCheckFFmpegMissing(t *testing.T) {
	if _, err := checkFFmpeg(context.Background(), "hark-no-such-ffmpeg"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestCheckSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	msg, err := checkSettings(path)
	if err != nil {
		t.Fatalf("checkSettings: %v", err)
	}
	if !strings.Contains(msg, "4 command(s) bound") {
		t.Errorf("msg = %q", msg)
	}
}
