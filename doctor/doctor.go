package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"hark/clipboard"
	"hark/hotkey"
	"hark/settings"
	"hark/shortcut"
)

type Config struct {
	FFmpeg       string
	SettingsPath string
	STT          string // "openai", "groq" or empty for auto
	// Hotkey is pressed by the user during the check; zero skips the
	// interactive part.
	Hotkey shortcut.Binding
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

var getenv = os.Getenv

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, cfg Config) int {
	resetTerminal()

	fmt.Println("hark doctor - system diagnostics")
	fmt.Println("================================")

	checks := []check{
		{"ffmpeg", func(ctx context.Context) (string, error) { return checkFFmpeg(ctx, cfg.FFmpeg) }},
		{"API keys", func(context.Context) (string, error) { return checkKeys(cfg.STT) }},
		{"Settings store", func(context.Context) (string, error) { return checkSettings(cfg.SettingsPath) }},
		{"Clipboard and keystrokes", checkClipboard},
		{"Hotkey", func(ctx context.Context) (string, error) { return checkHotkey(ctx, cfg.Hotkey) }},
	}

	allPass := runChecks(ctx, os.Stdout, checks)

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func runChecks(ctx context.Context, w io.Writer, checks []check) bool {
	allPass := true
	for i, c := range checks {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(checks), c.name)
		if ctx.Err() != nil {
			fmt.Fprintln(w, "  SKIP: interrupted")
			allPass = false
			continue
		}
		msg, err := c.run(ctx)
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			allPass = false
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", msg)
	}
	return allPass
}

func checkFFmpeg(ctx context.Context, bin string) (string, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH", bin)
	}
	out, err := exec.CommandContext(ctx, path, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", path, err)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(first), path), nil
}

func checkKeys(stt string) (string, error) {
	openai := getenv("OPENAI_API_KEY") != ""
	groq := getenv("GROQ_API_KEY") != ""

	var missing []string
	if !openai {
		missing = append(missing, "OPENAI_API_KEY (needed for grammar fix and the assistant)")
	}
	switch stt {
	case "groq":
		if !groq {
			missing = append(missing, "GROQ_API_KEY (selected with -stt groq)")
		}
	case "", "openai":
	default:
		return "", fmt.Errorf("unknown stt provider %q", stt)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	set := []string{"OPENAI_API_KEY"}
	if groq {
		set = append(set, "GROQ_API_KEY")
	}
	return strings.Join(set, ", ") + " set", nil
}

func checkSettings(path string) (string, error) {
	s, err := settings.Open(path)
	if err != nil {
		return "", err
	}
	defer s.Close()

	bound := 0
	for _, b := range s.Bindings() {
		if !b.IsZero() {
			bound++
		}
	}
	return fmt.Sprintf("%s readable, %d command(s) bound", path, bound), nil
}

func checkClipboard(ctx context.Context) (string, error) {
	type result struct {
		msg string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := clipboard.Verify()
		ch <- result{msg, err}
	}()

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-time.After(5 * time.Second):
		return "", errors.New("clipboard timed out (clipboard tool hung - display server not accessible?)")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func checkHotkey(ctx context.Context, b shortcut.Binding) (string, error) {
	msg, err := hotkey.Diagnose()
	if err != nil {
		return "", err
	}
	if b.IsZero() {
		return msg, nil
	}

	hk, err := hotkey.New(b)
	if err != nil {
		return "", err
	}
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("could not register %s: %w", b.Label(), err)
	}
	defer hk.Unregister()

	fmt.Printf("  Press %s...\n", b.Label())
	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// The keypress also reached the terminal.
		resetTerminal()
		return msg + ", " + b.Label() + " detected", nil
	case <-time.After(10 * time.Second):
		return "", fmt.Errorf("timeout waiting for %s", b.Label())
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
