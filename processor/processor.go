// Package processor sends text to a chat-completion model for grammar
// correction and for the conversational assistant.
package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"hark/history"
	"hark/log"
)

var (
	ErrService       = errors.New("chat service error")
	ErrEmptyResponse = errors.New("chat service returned no content")
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultProfile = "grammar"

	assistantTemperature = 0.7
)

// go-openai drops a zero temperature from the request body, so the
// smallest positive float stands in for deterministic sampling.
const zeroTemperature = math.SmallestNonzeroFloat32

var profiles = map[string]string{
	"grammar": "You are a proofreader. Correct spelling, grammar and punctuation in the user's text. " +
		"Preserve meaning, tone, language and formatting. Reply with the corrected text only, without quotes or commentary.",
	"formal": "You are an editor. Correct the user's text and rewrite it in a clear, formal register suitable for business writing. " +
		"Preserve meaning and language. Reply with the rewritten text only, without quotes or commentary.",
	"casual": "You are an editor. Correct the user's text and make it sound natural and conversational. " +
		"Preserve meaning and language. Reply with the rewritten text only, without quotes or commentary.",
}

const condensedDirective = " Make the result as concise as possible without losing information."

const assistantInstruction = "You are a concise desktop assistant. Your reply is pasted directly into the user's " +
	"active application, so answer with the text to insert only: no preamble, no markdown fences unless code was requested. " +
	"When selected text is provided, treat it as the subject of the request."

// Profiles lists the available correction profiles.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func KnownProfile(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Instruction returns the system instruction for profile, falling back to
// the grammar profile for unknown names.
func Instruction(profile string, condensed bool) string {
	inst, ok := profiles[profile]
	if !ok {
		inst = profiles[DefaultProfile]
	}
	if condensed {
		inst += condensedDirective
	}
	return inst
}

// ComposeInput embeds selection below input in a quoted block.
func ComposeInput(input, selection string) string {
	if strings.TrimSpace(selection) == "" {
		return input
	}
	return input + "\n\nSelected text:\n\"\"\"\n" + selection + "\n\"\"\""
}

type History interface {
	Turns() []history.Turn
	Append(role, content string)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Processor struct {
	client  *openai.Client
	model   string
	history History
}

func New(cfg Config, h History) *Processor {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Processor{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		history: h,
	}
}

func (p *Processor) Model() string { return p.model }

// Correct rewrites text according to profile.
func (p *Processor) Correct(ctx context.Context, text, profile string, condensed bool) (string, error) {
	return p.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: Instruction(profile, condensed)},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}, zeroTemperature)
}

// Converse sends input, with the optional selection, after the stored
// history. The exchange is appended to history only when it succeeds.
func (p *Processor) Converse(ctx context.Context, input, selection string) (string, error) {
	user := ComposeInput(input, selection)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: assistantInstruction},
	}
	if p.history != nil {
		for _, t := range p.history.Turns() {
			messages = append(messages, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	reply, err := p.complete(ctx, messages, assistantTemperature)
	if err != nil {
		return "", err
	}
	if p.history != nil {
		p.history.Append(history.RoleUser, user)
		p.history.Append(history.RoleAssistant, reply)
	}
	return reply, nil
}

func (p *Processor) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: status %d: %s", ErrService, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	log.Infof("processor: model=%s prompt_tokens=%d completion_tokens=%d",
		p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return content, nil
}
