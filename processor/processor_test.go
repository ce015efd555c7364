package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"hark/history"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
}

// chatServer answers chat completions with reply and records each request.
func chatServer(t *testing.T, status int, reply string, got *[]chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if got != nil {
			*got = append(*got, req)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProcessor(srv *httptest.Server, h History) *Processor {
	return New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, h)
}

func TestCorrect(t *testing.T) {
	var reqs []chatRequest
	srv := chatServer(t, http.StatusOK, "  This is fixed.\n", &reqs)
	p := newTestProcessor(srv, nil)

	got, err := p.Correct(context.Background(), "this is fixd", "grammar", false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "This is fixed." {
		t.Errorf("Correct() = %q", got)
	}

	req := reqs[0]
	if req.Model != DefaultModel {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "this is fixd" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.Temperature == nil || *req.Temperature > 1e-6 {
		t.Errorf("temperature = %v, want ~0", req.Temperature)
	}
}

func TestInstruction(t *testing.T) {
	tests := []struct {
		profile   string
		condensed bool
		contains  string
	}{
		{"grammar", false, "proofreader"},
		{"formal", false, "formal register"},
		{"casual", false, "conversational"},
		{"klingon", false, "proofreader"},
		{"grammar", true, "concise"},
	}
	for _, tt := range tests {
		got := Instruction(tt.profile, tt.condensed)
		if !strings.Contains(got, tt.contains) {
			t.Errorf("Instruction(%q, %v) = %q, want it to contain %q", tt.profile, tt.condensed, got, tt.contains)
		}
	}
	if strings.Contains(Instruction("grammar", false), "concise") {
		t.Error("condensed directive present without condensed flag")
	}
}

func TestComposeInput(t *testing.T) {
	if got := ComposeInput("summarise", "  "); got != "summarise" {
		t.Errorf("blank selection should be dropped, got %q", got)
	}
	want := "summarise\n\nSelected text:\n\"\"\"\nsome text\n\"\"\""
	if got := ComposeInput("summarise", "some text"); got != want {
		t.Errorf("ComposeInput = %q, want %q", got, want)
	}
}

func TestConverseUsesAndAppendsHistory(t *testing.T) {
	var reqs []chatRequest
	srv := chatServer(t, http.StatusOK, "Paris.", &reqs)
	h := history.Open(filepath.Join(t.TempDir(), "history.json"), 10)
	h.Append(history.RoleUser, "hi")
	h.Append(history.RoleAssistant, "hello")
	p := newTestProcessor(srv, h)

	got, err := p.Converse(context.Background(), "capital of this country?", "France")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Paris." {
		t.Errorf("Converse() = %q", got)
	}

	msgs := reqs[0].Messages
	if len(msgs) != 4 {
		t.Fatalf("sent %d messages, want system+2 history+user", len(msgs))
	}
	if msgs[1].Content != "hi" || msgs[2].Content != "hello" {
		t.Errorf("history not replayed in order: %+v", msgs)
	}
	if !strings.Contains(msgs[3].Content, "Selected text:\n\"\"\"\nFrance\n\"\"\"") {
		t.Errorf("selection not embedded: %q", msgs[3].Content)
	}
	if reqs[0].Temperature == nil || *reqs[0].Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", reqs[0].Temperature)
	}

	turns := h.Turns()
	if len(turns) != 4 {
		t.Fatalf("history len = %d, want 4", len(turns))
	}
	if turns[2].Role != history.RoleUser || turns[2].Content != msgs[3].Content {
		t.Errorf("user turn = %+v", turns[2])
	}
	if turns[3].Role != history.RoleAssistant || turns[3].Content != "Paris." {
		t.Errorf("assistant turn = %+v", turns[3])
	}
}

func TestConverseFailureLeavesHistory(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "", nil)
	h := history.Open("", 10)
	p := newTestProcessor(srv, h)

	_, err := p.Converse(context.Background(), "hello", "")
	if !errors.Is(err, ErrService) {
		t.Fatalf("err = %v, want ErrService", err)
	}
	if h.Len() != 0 {
		t.Errorf("history mutated on failure: %+v", h.Turns())
	}
}

func TestEmptyResponse(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "   ", nil)
	p := newTestProcessor(srv, nil)
	if _, err := p.Correct(context.Background(), "x", "grammar", false); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "unused", nil)
	p := newTestProcessor(srv, nil)
	srv.Close()
	if _, err := p.Correct(context.Background(), "x", "grammar", false); !errors.Is(err, ErrService) {
		t.Errorf("err = %v, want ErrService", err)
	}
}

func TestProfiles(t *testing.T) {
	got := strings.Join(Profiles(), ",")
	if got != "casual,formal,grammar" {
		t.Errorf("Profiles() = %s", got)
	}
	if !KnownProfile("formal") || KnownProfile("pirate") {
		t.Error("KnownProfile wrong")
	}
}
