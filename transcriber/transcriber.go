// Package transcriber uploads recorded audio to a Whisper-compatible
// speech-to-text endpoint.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
)

var (
	ErrService     = errors.New("transcription service error")
	ErrEmptyResult = errors.New("transcription returned no text")
)

const DefaultLanguage = "en"

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Transcriber interface {
	Name() string
	Model() string
	Transcribe(ctx context.Context, path string) (string, error)
}

type Options struct {
	Provider string // "openai" or "groq"; empty picks by available key
	Language string
	BaseURL  string // overrides the provider endpoint root, e.g. http://127.0.0.1:8080/v1
}

// New builds the transcriber for opts, reading the API key from the
// environment.
func New(opts Options) (Transcriber, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	groqKey := os.Getenv("GROQ_API_KEY")

	provider := opts.Provider
	if provider == "" {
		switch {
		case groqKey != "":
			provider = "groq"
		case openaiKey != "":
			provider = "openai"
		default:
			return nil, fmt.Errorf("set OPENAI_API_KEY or GROQ_API_KEY environment variable")
		}
	}

	var w *Whisper
	switch provider {
	case "openai":
		if openaiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		w = NewOpenAI(openaiKey)
	case "groq":
		if groqKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY not set")
		}
		w = NewGroq(groqKey)
	default:
		return nil, fmt.Errorf("unknown stt provider %q (want openai or groq)", provider)
	}

	if opts.Language != "" {
		w.SetLanguage(opts.Language)
	}
	if opts.BaseURL != "" {
		w.SetBaseURL(opts.BaseURL)
	}
	return w, nil
}
