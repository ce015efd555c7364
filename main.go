package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hark/beep"
	"hark/clipboard"
	"hark/command"
	"hark/control"
	"hark/controller"
	"hark/device"
	"hark/doctor"
	"hark/history"
	"hark/hotkey"
	"hark/log"
	"hark/notify"
	"hark/processor"
	"hark/recorder"
	"hark/settings"
	"hark/shortcut"
	"hark/shutdown"
	"hark/transcriber"
)

var version = "dev"

type options struct {
	logPath string
	config  string
	device  string
	ffmpeg  string
	stt     string
	lang    string
	model   string
	apiBase string
	profile string
	listen  string
	binds   bindFlags
	setup   bool
	doctor  bool
	test    bool
	noBeep  bool
	tui     bool
	version bool
}

// bindFlags collects repeated -bind id=binding arguments.
type bindFlags []string

func (b *bindFlags) String() string { return strings.Join(*b, ",") }

func (b *bindFlags) Set(v string) error {
	if _, _, err := parseBind(v); err != nil {
		return err
	}
	*b = append(*b, v)
	return nil
}

// parseBind splits "transcribe=ctrl+alt+r". An empty binding unbinds.
func parseBind(v string) (string, shortcut.Binding, error) {
	id, keys, ok := strings.Cut(v, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", shortcut.Binding{}, fmt.Errorf("want id=binding, got %q", v)
	}
	if !command.Known(id) {
		return "", shortcut.Binding{}, fmt.Errorf("%w: %s", command.ErrUnknown, id)
	}
	if strings.TrimSpace(keys) == "" {
		return id, shortcut.Binding{}, nil
	}
	b, err := shortcut.Parse(keys)
	if err != nil {
		return "", shortcut.Binding{}, err
	}
	return id, b, nil
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.StringVar(&o.config, "config", "", "config directory for settings, history and .env (default: OS-specific location)")
	flag.StringVar(&o.device, "device", "", "capture device passed to ffmpeg (overrides the saved choice; lavfi:<source> for a synthetic input)")
	flag.StringVar(&o.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	flag.StringVar(&o.stt, "stt", "", "speech-to-text provider: openai or groq (default: groq if GROQ_API_KEY is set)")
	flag.StringVar(&o.lang, "lang", transcriber.DefaultLanguage, "language code for transcription (e.g., en, es, fr)")
	flag.StringVar(&o.model, "model", processor.DefaultModel, "chat model for grammar fix and the assistant")
	flag.StringVar(&o.apiBase, "api-base", "", "OpenAI-compatible API root for both transcription and chat, e.g. http://127.0.0.1:8080/v1")
	flag.StringVar(&o.profile, "profile", "", "grammar fix profile to save: "+strings.Join(processor.Profiles(), ", "))
	flag.StringVar(&o.listen, "listen", "", "serve the control API on this address, e.g. 127.0.0.1:7733")
	flag.Var(&o.binds, "bind", "save a hotkey binding, e.g. -bind transcribe=ctrl+alt+r (repeatable, empty binding unbinds)")
	flag.BoolVar(&o.setup, "setup", false, "select and save the microphone device")
	flag.BoolVar(&o.doctor, "doctor", false, "run system diagnostics and exit")
	flag.BoolVar(&o.test, "test", false, "test mode (headless, stdin-driven)")
	flag.BoolVar(&o.noBeep, "nobeep", false, "disable audio cues")
	flag.BoolVar(&o.tui, "tui", true, "run with terminal UI")
	flag.BoolVar(&o.version, "version", false, "print version and exit")
	flag.Parse()
	return o
}

func run() {
	os.Exit(runApp(parseFlags()))
}

// configDir resolves the directory holding settings.db, history.json and .env.
func configDir(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "hark"), nil
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func runApp(o options) int {
	if o.version {
		fmt.Printf("hark %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(o.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	dir, err := configDir(o.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve config directory: %v\n", err)
		return 1
	}
	// Existing variables win; the working directory .env wins over the
	// config directory one.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	settingsPath := filepath.Join(dir, "settings.db")

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if o.doctor {
		return doctor.Run(ctx, doctor.Config{
			FFmpeg:       o.ffmpeg,
			SettingsPath: settingsPath,
			STT:          o.stt,
			Hotkey:       doctorHotkey(settingsPath),
		})
	}

	if o.noBeep || o.test {
		beep.Disable()
	}
	if o.test {
		notify.Disable()
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	store, err := settings.Open(settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := applyStartupSettings(store, o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	dev, err := resolveDevice(store, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	trans, err := transcriber.New(transcriber.Options{Provider: o.stt, Language: o.lang, BaseURL: o.apiBase})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if w, ok := trans.(interface{ Warm() }); ok && !o.test {
		go w.Warm()
	}

	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Warn("OPENAI_API_KEY not set; grammar fix and the assistant will fail")
		fmt.Fprintln(os.Stderr, "Warning: OPENAI_API_KEY not set; grammar fix and the assistant will fail")
	}

	hist := history.Open(filepath.Join(dir, "history.json"), history.DefaultCapacity)
	chatBase := o.apiBase
	if chatBase == "" {
		chatBase = os.Getenv("OPENAI_BASE_URL")
	}
	proc := processor.New(processor.Config{APIKey: openaiKey, BaseURL: chatBase, Model: o.model}, hist)

	log.SessionStart(trans.Name()+"/"+trans.Model(), proc.Model())

	var newHotkey hotkey.Factory = hotkey.New
	var fakeKeys *hotkey.FakeFactory
	if o.test {
		fakeKeys = &hotkey.FakeFactory{}
		newHotkey = fakeKeys.New
	}

	rec := recorder.New(recorder.Config{
		FFmpeg: o.ffmpeg,
		Device: dev,
		Path:   filepath.Join(os.TempDir(), fmt.Sprintf("hark-%d.mp3", os.Getpid())),
	}, hotkey.NewTransient(newHotkey, hotkey.CancelBinding))

	var (
		clip controller.Clipboard
		mem  *memClipboard
		out  = newLineWriter(os.Stdout)
		ui   *tui
		sink controller.StatusSink
	)
	counter := &interactionCounter{}
	switch {
	case o.test:
		mem = newMemClipboard(out)
		clip = mem
		sink = sinks{counter, logSink{}, lineSink{out}}
	default:
		if err := clipboard.Init(); err != nil {
			log.Warnf("keystroke init failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: keystroke init failed: %v\n", err)
			if runtime.GOOS == "linux" {
				fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
			}
		}
		clip = clipboard.System{}
		all := sinks{counter, logSink{}, notifySink{notify.New(3 * time.Second)}}
		if o.tui {
			ui = newTUI(tuiInfo{
				mode:   modeLine(trans, proc),
				device: deviceLine(dev),
			})
			all = append(all, ui)
		} else {
			all = append(all, lineSink{out})
		}
		sink = all
	}

	ctrl := controller.New(controller.Deps{
		Recorder:    rec,
		Transcriber: trans,
		Processor:   proc,
		Clipboard:   clip,
		Settings:    store,
		Sink:        sink,
		Cues:        beep.Cues{},
	}, controller.DefaultConfig())
	defer ctrl.Close()

	a := &app{ctrl: ctrl, store: store, history: hist, ui: ui}
	registry := a.commands()

	defer func() { log.SessionEnd(counter.count()) }()

	if o.test {
		tm := &testMode{
			ctx:      ctx,
			ctrl:     ctrl,
			registry: registry,
			keys:     fakeKeys,
			clip:     mem,
			out:      out,
		}
		if err := tm.run(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	binder := hotkey.NewBinder(newHotkey)
	defer binder.Close()
	fire := func(id string) { registry.Fire(ctx, id) }
	rebind := func(b map[string]shortcut.Binding) error {
		err := binder.Apply(b, fire)
		if ui != nil {
			ui.Bindings(binder.Bound())
		}
		return err
	}
	if err := rebind(store.Bindings()); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: some hotkeys could not be registered: %v\n", err)
		if len(binder.Bound()) == 0 {
			if msg, derr := hotkey.Diagnose(); derr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", derr)
			} else {
				fmt.Fprintln(os.Stderr, msg)
			}
			return 1
		}
	}

	if o.listen != "" {
		srv := control.New(ctx, control.Deps{
			Status:     ctrl,
			Dispatcher: registry,
			Settings:   controlSettings{Store: store, a: a},
			Rebind:     rebind,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, o.listen); err != nil {
				log.Errorf("control server: %v", err)
				fmt.Fprintf(os.Stderr, "Warning: control server: %v\n", err)
			}
		}()
	}

	if ui == nil {
		fmt.Printf("hark %s running (%s). Press Ctrl+C to quit.\n", version, modeLine(trans, proc))
		for _, id := range command.IDs {
			if b := binder.Bound()[id]; !b.IsZero() {
				fmt.Printf("  %-18s %s\n", b.Label(), command.Title(id))
			}
		}
		<-ctx.Done()
		return 0
	}

	a.refreshFlags()
	go func() {
		if err := ui.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
		stop()
	}()
	<-ctx.Done()
	ui.Quit()
	return 0
}

// applyStartupSettings persists -bind and -profile before anything reads them.
func applyStartupSettings(store *settings.Store, o options) error {
	for _, v := range o.binds {
		id, b, err := parseBind(v)
		if err != nil {
			return err
		}
		if err := store.SetBinding(id, b); err != nil {
			return err
		}
		log.Infof("binding saved: %s=%s", id, b.String())
	}
	if o.profile != "" {
		if !processor.KnownProfile(o.profile) {
			return fmt.Errorf("unknown profile %q (want one of %s)", o.profile, strings.Join(processor.Profiles(), ", "))
		}
		if err := store.SetPref(settings.PrefProfile, o.profile); err != nil {
			return err
		}
	}
	return nil
}

// resolveDevice picks the capture device: -device, then -setup, then the
// saved choice. dshow has no default input, so windows falls back to the
// first enumerated device.
func resolveDevice(store *settings.Store, o options) (string, error) {
	if o.device != "" {
		return o.device, nil
	}
	if o.setup {
		devices, err := device.List()
		if err != nil {
			return "", err
		}
		info, err := device.Select(devices)
		if errors.Is(err, device.ErrAborted) {
			return store.Device(), nil
		}
		if err != nil {
			return "", err
		}
		if device.IsBluetooth(info.Name) {
			fmt.Println("Warning: Bluetooth microphones switch the headset to a low quality profile while recording.")
		}
		if err := store.SetPref(settings.PrefDevice, info.ID); err != nil {
			return "", err
		}
		log.Infof("device saved: %s", info.ID)
		return info.ID, nil
	}
	if dev := store.Device(); dev != "" {
		return dev, nil
	}
	if runtime.GOOS == "windows" {
		devices, err := device.List()
		if err != nil {
			return "", err
		}
		if len(devices) == 0 {
			return "", errors.New("no capture devices found")
		}
		return devices[0].ID, nil
	}
	return "", nil
}

// doctorHotkey is the binding the user is asked to press during -doctor.
func doctorHotkey(settingsPath string) shortcut.Binding {
	if store, err := settings.Open(settingsPath); err == nil {
		defer store.Close()
		if b := store.Bindings()[command.Transcribe]; !b.IsZero() {
			return b
		}
	}
	return command.Defaults()[command.Transcribe]
}

func modeLine(t transcriber.Transcriber, p *processor.Processor) string {
	return fmt.Sprintf("[%s %s | %s]", t.Name(), t.Model(), p.Model())
}

func deviceLine(dev string) string {
	name := dev
	if name == "" {
		name = "system default"
	}
	suffix := ""
	if device.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}
