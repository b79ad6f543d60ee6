package ai

import (
	"context"
	"fmt"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaProvider struct {
	baseURL string
	args    ProviderArgs
}

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   interface{}            `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body := ollamaRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.JSONOutput {
		body.Format = "json"
		if req.Schema != nil {
			body.Format = req.Schema
		}
	}
	var out ollamaResponse
	if err := postJSON(ctx, p.args.httpClient(), "ollama", joinURL(p.baseURL, "/api/chat"), p.args.Headers, body, &out); err != nil {
		return nil, err
	}
	model := out.Model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{
		Content: strings.TrimSpace(out.Message.Content),
		Model:   model,
		Usage: TokenUsage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
		},
	}, nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	var out ollamaEmbedResponse
	if err := postJSON(ctx, p.args.httpClient(), "ollama", joinURL(p.baseURL, "/api/embed"), p.args.Headers, ollamaEmbedRequest{Model: model, Input: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama response has no embeddings")
	}
	return out.Embeddings[0], nil
}

func newOllamaProvider(args ProviderArgs) *ollamaProvider {
	baseURL := strings.TrimSpace(args.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{baseURL: strings.TrimRight(baseURL, "/"), args: args}
}

func createOllamaFactory(args ProviderArgs) (IProvider, error) {
	return newOllamaProvider(args), nil
}

func createOllamaEmbedFactory(args ProviderArgs) (IEmbedProvider, error) {
	return newOllamaProvider(args), nil
}

func init() {
	Register("ollama", createOllamaFactory)
	RegisterEmbed("ollama", createOllamaEmbedFactory)
}
