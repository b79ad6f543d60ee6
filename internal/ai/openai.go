package ai

import (
	"context"
	"fmt"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIProvider talks to the chat completions API. It also serves any
// OpenAI compatible server (vLLM, LM Studio, llama.cpp) through BaseURL.
type openAIProvider struct {
	name    string
	apiKey  string
	baseURL string
	headers map[string]string
	args    ProviderArgs
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
	Stream         bool                  `json:"stream"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
	Strict bool                   `json:"strict"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" && p.baseURL == defaultOpenAIBaseURL {
		return nil, ErrUnavailable
	}
	temperature := req.Temperature
	body := openAIChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	if req.JSONOutput {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
		if req.Schema != nil {
			name := req.SchemaName
			if name == "" {
				name = "response"
			}
			body.ResponseFormat = &openAIResponseFormat{
				Type:       "json_schema",
				JSONSchema: &openAIJSONSchema{Name: name, Schema: req.Schema},
			}
		}
	}
	headers := map[string]string{}
	for k, v := range p.headers {
		headers[k] = v
	}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	var out openAIChatResponse
	if err := postJSON(ctx, p.args.httpClient(), p.name, joinURL(p.baseURL, "/chat/completions"), headers, body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s response has no choices", p.name)
	}
	model := out.Model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{
		Content: strings.TrimSpace(out.Choices[0].Message.Content),
		Model:   model,
		Usage: TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	if p.apiKey == "" && p.baseURL == defaultOpenAIBaseURL {
		return nil, ErrUnavailable
	}
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	var out openAIEmbedResponse
	if err := postJSON(ctx, p.args.httpClient(), p.name, joinURL(p.baseURL, "/embeddings"), headers, openAIEmbedRequest{Model: model, Input: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%s response has no embeddings", p.name)
	}
	return out.Data[0].Embedding, nil
}

func newOpenAIProvider(args ProviderArgs) *openAIProvider {
	baseURL := strings.TrimSpace(args.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		name:    "openai",
		apiKey:  strings.TrimSpace(args.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: args.Headers,
		args:    args,
	}
}

func createOpenAIFactory(args ProviderArgs) (IProvider, error) {
	return newOpenAIProvider(args), nil
}

func createOpenAIEmbedFactory(args ProviderArgs) (IEmbedProvider, error) {
	return newOpenAIProvider(args), nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
