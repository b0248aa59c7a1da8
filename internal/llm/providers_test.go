package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

var messageSchema = &Schema{
	Name: "test-message",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"message": map[string]any{"type": "string"}},
		"required":             []string{"message"},
		"additionalProperties": false,
	},
}

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicReply(text, stop string) map[string]any {
	return map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 12},
	}
}

func newAnthropic(t *testing.T, url string) *AnthropicProvider {
	t.Helper()
	p, err := NewAnthropicProvider(Credentials{APIKey: "test", Model: "claude-haiku"}, option.WithBaseURL(url))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func ask(schema *Schema) Request {
	return Request{
		System:    "You coach students.",
		Messages:  []Message{{Role: RoleUser, Content: "Encourage me."}},
		Schema:    schema,
		MaxTokens: 128,
	}
}

func TestAnthropicGenerate(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicReply(`{"message":"Keep going"}`, "end_turn"))
	p := newAnthropic(t, url)

	resp, err := p.Generate(context.Background(), ask(messageSchema))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(resp.Content) != `{"message":"Keep going"}` {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage.InputTokens != 50 || resp.Usage.Total() != 62 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop = %q", resp.StopReason)
	}
	if p.ModelID() != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %q", p.ModelID())
	}
}

func TestAnthropicErrors(t *testing.T) {
	errBody := map[string]any{"type": "error", "error": map[string]any{"type": "x", "message": "nope"}}
	tests := []struct {
		name   string
		status int
		body   any
		want   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, errBody, KindRateLimited},
		{"server error", http.StatusInternalServerError, errBody, KindUnavailable},
		{"schema mismatch", http.StatusOK, anthropicReply(`{"msg":"hi"}`, "end_turn"), KindInvalidResponse},
		{"not json", http.StatusOK, anthropicReply(`Keep going`, "end_turn"), KindInvalidResponse},
		{"truncated", http.StatusOK, anthropicReply(`{"message":"Keep`, "max_tokens"), KindTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newAnthropic(t, serve(t, tt.status, tt.body))
			_, err := p.Generate(context.Background(), ask(messageSchema))
			if !IsKind(err, tt.want) {
				t.Fatalf("err = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func openaiReply(content, finish string) map[string]any {
	return map[string]any{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48},
	}
}

func newOpenAI(t *testing.T, url string) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(Credentials{APIKey: "test", Model: "gpt-mini", BaseURL: url + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenAIGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiReply(`{"message":"Nice work"}`, "stop"))
	}))
	t.Cleanup(srv.Close)

	p := newOpenAI(t, srv.URL)
	resp, err := p.Generate(context.Background(), ask(messageSchema))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(resp.Content) != `{"message":"Nice work"}` {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage.OutputTokens != 8 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model sent = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("messages sent = %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.JSONSchema == nil || got.ResponseFormat.JSONSchema.Name != "test-message" {
		t.Errorf("response format = %+v", got.ResponseFormat)
	}
}

func TestOpenAIErrors(t *testing.T) {
	errBody := map[string]any{"error": map[string]any{"message": "nope", "type": "x"}}
	tests := []struct {
		name   string
		status int
		body   any
		want   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, errBody, KindRateLimited},
		{"server error", http.StatusBadGateway, errBody, KindUnavailable},
		{"no choices", http.StatusOK, map[string]any{"id": "x", "choices": []any{}}, KindInvalidResponse},
		{"truncated", http.StatusOK, openaiReply(`{"mess`, "length"), KindTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOpenAI(t, serve(t, tt.status, tt.body))
			_, err := p.Generate(context.Background(), ask(messageSchema))
			if !IsKind(err, tt.want) {
				t.Fatalf("err = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestUnstructuredRequestSkipsValidation(t *testing.T) {
	p := newOpenAI(t, serve(t, http.StatusOK, openaiReply("plain words", "length")))
	resp, err := p.Generate(context.Background(), ask(nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.StopReason != "max_tokens" {
		t.Errorf("stop = %q", resp.StopReason)
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "description": "one line"},
			"tier":    map[string]any{"type": "string", "enum": []any{"high", "low"}},
			"scores":  map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		},
		"required": []string{"message"},
	})
	if s.Type != "OBJECT" || len(s.Properties) != 3 {
		t.Fatalf("schema = %+v", s)
	}
	if s.Properties["message"].Description != "one line" {
		t.Errorf("description lost")
	}
	if len(s.Properties["tier"].Enum) != 2 {
		t.Errorf("enum = %v", s.Properties["tier"].Enum)
	}
	if s.Properties["scores"].Items.Type != "INTEGER" {
		t.Errorf("items = %+v", s.Properties["scores"].Items)
	}
	if len(s.Required) != 1 || s.Required[0] != "message" {
		t.Errorf("required = %v", s.Required)
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name    string
		aliases map[string]string
		want    string
	}{
		{"claude-haiku", anthropicModels, "claude-haiku-4-5-20251001"},
		{"gpt-mini", openaiModels, "gpt-4o-mini"},
		{"gemini-flash", geminiModels, "gemini-2.5-flash"},
		{"gemini-2.0-flash", geminiModels, "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.name, tt.aliases); got != tt.want {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
