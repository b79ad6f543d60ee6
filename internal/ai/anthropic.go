package ai

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultAnthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
)

type anthropicProvider struct {
	apiKey  string
	baseURL string
	args    ProviderArgs
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *anthropicProvider) Name() string {
	return "anthropic"
}

// Chat has no native JSON mode; structured output relies on the schema
// instruction already present in the messages.
func (p *anthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	body := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultAnthropicMaxTokens
	}
	// anthropic accepts temperature in [0,1]
	temperature := req.Temperature
	if temperature > 1 {
		temperature = 1
	}
	body.Temperature = &temperature
	var system []string
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	body.System = strings.Join(system, "\n\n")
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var out anthropicResponse
	if err := postJSON(ctx, p.args.httpClient(), "anthropic", joinURL(p.baseURL, "/v1/messages"), headers, body, &out); err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic response has no text content")
	}
	model := out.Model
	if model == "" {
		model = req.Model
	}
	return &ChatResponse{
		Content: strings.TrimSpace(sb.String()),
		Model:   model,
		Usage: TokenUsage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
		},
	}, nil
}

func createAnthropicFactory(args ProviderArgs) (IProvider, error) {
	baseURL := strings.TrimSpace(args.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicProvider{
		apiKey:  strings.TrimSpace(args.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		args:    args,
	}, nil
}

func init() {
	Register("anthropic", createAnthropicFactory)
}
