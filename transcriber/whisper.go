package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hark/log"
)

// Whisper speaks the OpenAI audio/transcriptions protocol, which Groq
// mirrors.
type Whisper struct {
	name   string
	model  string
	apiKey string
	apiURL string
	lang   string
	client *uploadClient
}

func newWhisper(name, model, baseURL, apiKey string) *Whisper {
	w := &Whisper{
		name:   name,
		model:  model,
		apiKey: apiKey,
		lang:   DefaultLanguage,
		client: newUploadClient(),
	}
	w.SetBaseURL(baseURL)
	return w
}

func (w *Whisper) Name() string  { return w.name }
func (w *Whisper) Model() string { return w.model }

func (w *Whisper) SetLanguage(lang string) { w.lang = lang }
func (w *Whisper) Language() string        { return w.lang }

// SetBaseURL points the client at baseURL + /audio/transcriptions.
func (w *Whisper) SetBaseURL(baseURL string) {
	w.apiURL = strings.TrimRight(baseURL, "/") + "/audio/transcriptions"
}

// Warm opens a connection ahead of the first upload.
func (w *Whisper) Warm() {
	if d := w.client.warm(w.apiURL); d > 0 {
		log.Infof("%s: connection warmed in %s", w.name, d.Round(time.Millisecond))
	}
}

type whisperResponse struct {
	Text *string `json:"text"`
}

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading recording: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}

	writer.WriteField("model", w.model)
	writer.WriteField("temperature", "0")
	writer.WriteField("response_format", "json")
	writer.WriteField("language", w.lang)
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrService, w.name, err)
	}
	log.TranscriptionMetrics(w.name, float64(len(audio))/1024, resp.timings)

	if resp.status < 200 || resp.status > 299 {
		return "", fmt.Errorf("%w: %s API error %d: %s", ErrService, w.name, resp.status, snippet(resp.body))
	}
	if remaining := firstNonEmpty(resp.header, "x-ratelimit-remaining-requests"); remaining != "?" {
		log.Infof("%s: rate limit %s/%s", w.name, remaining, firstNonEmpty(resp.header, "x-ratelimit-limit-requests"))
	}

	var parsed whisperResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %s response parse error: %v", ErrService, w.name, err)
	}
	if parsed.Text == nil || strings.TrimSpace(*parsed.Text) == "" {
		return "", ErrEmptyResult
	}
	return strings.TrimSpace(*parsed.Text), nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
