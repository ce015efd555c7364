package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog         zerolog.Logger
	diagFile        *os.File
	interactionFile *os.File
	logMu           sync.Mutex
	logReady        bool
	pid             int
	dir             string
)

// ResolveDir picks the log directory: -logpath flag, then HARK_LOG_PATH,
// then the OS default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absFromWd(flagPath)
	}
	if envPath := os.Getenv("HARK_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	interactionFile, err = os.OpenFile(filepath.Join(dir, "interactions_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if interactionFile != nil {
		interactionFile.Close()
		interactionFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// Interaction records the outcome of one controller flow.
func Interaction(id, flow, outcome string, elapsed time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("id", id).
		Str("flow", flow).
		Str("outcome", outcome).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("interaction")
}

type NetworkTimings struct {
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ConnReused bool
}

func TranscriptionMetrics(provider string, uploadKB float64, t NetworkTimings) {
	if !logReady {
		return
	}
	conn := "new"
	if t.ConnReused {
		conn = "reused"
	}
	diagLog.Info().
		Str("provider", provider).
		Str("conn", conn).
		Float64("upload_kb", uploadKB).
		Float64("dns_ms", t.DNSMs).
		Float64("tls_ms", t.TLSMs).
		Float64("ttfb_ms", t.TTFBMs).
		Float64("total_ms", t.TotalMs).
		Msg("transcription")
}

// Delivered appends text that was pasted into the focused application.
func Delivered(flow, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if interactionFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, flow,
		strings.ReplaceAll(text, "\n", " "))
	interactionFile.WriteString(line)
}

func SessionStart(stt, model string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("stt", stt).
		Str("model", model).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("interactions", count).
		Msg("session_end")
}
