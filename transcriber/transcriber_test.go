package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadClientReusesConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen", r.Method)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newUploadClient()
	var reused []bool
	for range 2 {
		req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
		if err != nil {
			t.Fatal(err)
		}
		r, err := c.do(req)
		if err != nil {
			t.Fatal(err)
		}
		if r.status != http.StatusOK || string(r.body) != "ok" || r.header.Get("X-Seen") != "POST" {
			t.Fatalf("reply = %d %q %v", r.status, r.body, r.header)
		}
		if r.timings.TotalMs <= 0 {
			t.Errorf("TotalMs = %v", r.timings.TotalMs)
		}
		reused = append(reused, r.timings.ConnReused)
	}
	if reused[0] || !reused[1] {
		t.Errorf("ConnReused = %v, want [false true]", reused)
	}
}

func TestWarmFailsQuietly(t *testing.T) {
	if d := newUploadClient().warm("http://127.0.0.1:1/"); d != 0 {
		t.Errorf("warm on closed port = %v, want 0", d)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.mp3")
	if err := os.WriteFile(path, []byte("ID3 fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeRequest(t *testing.T) {
	var gotFields map[string]string
	var gotAuth, gotPath, gotFile string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			gotFile = fh[0].Filename
		}
		w.Write([]byte(`{"text":"  hello world \n"}`))
	}))
	defer srv.Close()

	w := NewGroq("gsk-test")
	w.SetBaseURL(srv.URL + "/openai/v1/")

	text, err := w.Transcribe(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer gsk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/openai/v1/audio/transcriptions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotFile != "recording.mp3" {
		t.Errorf("file name = %q", gotFile)
	}
	want := map[string]string{
		"model":           groqModel,
		"temperature":     "0",
		"response_format": "json",
		"language":        "en",
	}
	for k, v := range want {
		if gotFields[k] != v {
			t.Errorf("field %s = %q, want %q", k, gotFields[k], v)
		}
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, ErrService},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, ErrService},
		{"not json", http.StatusOK, `<html>`, ErrService},
		{"missing text", http.StatusOK, `{}`, ErrEmptyResult},
		{"empty text", http.StatusOK, `{"text": ""}`, ErrEmptyResult},
		{"blank text", http.StatusOK, `{"text":"   "}`, ErrEmptyResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			w := NewOpenAI("sk-test")
			w.SetBaseURL(srv.URL)
			_, err := w.Transcribe(context.Background(), writeArtifact(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	w := NewOpenAI("sk-test")
	w.SetBaseURL(url)
	if _, err := w.Transcribe(context.Background(), writeArtifact(t)); !errors.Is(err, ErrService) {
		t.Errorf("err = %v, want ErrService", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk")
	t.Setenv("GROQ_API_KEY", "")

	tr, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Name() != "openai" || tr.Model() != "whisper-1" {
		t.Errorf("got %s/%s", tr.Name(), tr.Model())
	}

	if _, err := New(Options{Provider: "groq"}); err == nil {
		t.Error("groq without key should fail")
	}
	if _, err := New(Options{Provider: "deepgram"}); err == nil {
		t.Error("unknown provider should fail")
	}

	tr, err = New(Options{Provider: "openai", Language: "de"})
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.(*Whisper).Language(); got != "de" {
		t.Errorf("language = %q", got)
	}
}

func TestFake(t *testing.T) {
	f := NewFake("hi", nil)
	path := writeArtifact(t)
	if got, err := f.Transcribe(context.Background(), path); err != nil || got != "hi" {
		t.Errorf("Transcribe = %q, %v", got, err)
	}
	if _, err := f.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.mp3")); err == nil {
		t.Error("missing artifact should fail")
	}
	if _, err := NewFake("", nil).Transcribe(context.Background(), path); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("empty fake = %v", err)
	}
	if len(f.Calls()) != 2 {
		t.Errorf("calls = %v", f.Calls())
	}
}
