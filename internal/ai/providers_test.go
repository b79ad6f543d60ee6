package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestOpenAIChat(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini-2024","choices":[{"message":{"content":" {\"a\":1} "}}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", ProviderArgs{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 0.2,
		MaxTokens:   64,
		JSONOutput:  true,
		Schema:      map[string]interface{}{"type": "object"},
		SchemaName:  "Summary",
	})
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, resp.Content)
	require.Equal(t, "gpt-4o-mini-2024", resp.Model)
	require.Equal(t, TokenUsage{PromptTokens: 7, CompletionTokens: 3}, resp.Usage)

	require.Equal(t, "gpt-4o-mini", got["model"])
	require.Equal(t, 0.2, got["temperature"])
	require.EqualValues(t, 64, got["max_tokens"])
	format := got["response_format"].(map[string]interface{})
	require.Equal(t, "json_schema", format["type"])
	require.Equal(t, "Summary", format["json_schema"].(map[string]interface{})["name"])
}

func TestOpenAICompatibleServerWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", ProviderArgs{BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), &ChatRequest{Model: "local"})
	require.NoError(t, err)
	require.Equal(t, "local", resp.Model)
}

func TestOpenAIMissingKey(t *testing.T) {
	p, err := NewProvider("openai", ProviderArgs{})
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), &ChatRequest{Model: "gpt-4o"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestProviderStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("case") {
		case "limit":
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	err := postJSON(context.Background(), srv.Client(), "openai", srv.URL+"?case=limit", nil, map[string]string{}, &struct{}{})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, "3s", rl.RetryAfter.String())

	err = postJSON(context.Background(), srv.Client(), "openai", srv.URL, nil, map[string]string{}, &struct{}{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
	require.Equal(t, "busy", se.Body)
	require.True(t, se.Temporary())
}

func TestAnthropicChat(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "key", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello"}],"usage":{"input_tokens":4,"output_tokens":2}}`))
	}))
	defer srv.Close()

	p, err := NewProvider("anthropic", ProviderArgs{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Model: "claude-3-5-haiku",
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
		},
		Temperature: 1.5,
	})
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Content)
	require.Equal(t, 4, resp.Usage.PromptTokens)
	require.Equal(t, "sys", got["system"])
	require.EqualValues(t, defaultAnthropicMaxTokens, got["max_tokens"])
	require.EqualValues(t, 1, got["temperature"])
	require.Len(t, got["messages"], 1)
}

func TestOllamaChat(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"content":"{}"},"prompt_eval_count":9,"eval_count":1}`))
	}))
	defer srv.Close()

	p, err := NewProvider("ollama", ProviderArgs{BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Model:      "llama3",
		MaxTokens:  32,
		JSONOutput: true,
		Schema:     map[string]interface{}{"type": "object"},
	})
	require.NoError(t, err)
	require.Equal(t, 9, resp.Usage.PromptTokens)
	require.Equal(t, false, got["stream"])
	require.Equal(t, map[string]interface{}{"type": "object"}, got["format"])
	require.EqualValues(t, 32, got["options"].(map[string]interface{})["num_predict"])
}

func TestOpenRouterRequiresKey(t *testing.T) {
	_, err := NewProvider("openrouter", ProviderArgs{})
	var upe *UnsupportedProviderError
	require.ErrorAs(t, err, &upe)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewEmbedders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "text-embedding-3-small", body["model"])
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	settings := DefaultSettings()
	settings.Providers["openai"] = ProviderArgs{BaseURL: srv.URL}
	e, err := NewEmbedders(settings, []string{"openai/text-embedding-3-small"})
	require.NoError(t, err)
	require.Equal(t, "openai/text-embedding-3-small", e.ModelName())
	vec, err := e.Embed(context.Background(), "hello", "")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, vec)

	_, err = NewEmbedders(settings, nil)
	require.Error(t, err)
}
