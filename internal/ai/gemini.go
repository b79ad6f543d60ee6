package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

type geminiProvider struct {
	args   ProviderArgs
	apiKey string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     p.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: p.args.HTTPClient,
		}
		if p.args.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.args.BaseURL}
		}
		p.client, p.clientErr = genai.NewClient(ctx, cfg)
	})
	return p.client, p.clientErr
}

func (p *geminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	out := &ChatResponse{
		Content: strings.TrimSpace(resp.Text()),
		Model:   req.Model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	statusErr := &StatusError{
		Provider:   "gemini",
		StatusCode: apiErr.Code,
		Status:     apiErr.Status,
		Body:       apiErr.Message,
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return NewRateLimitError("gemini", statusErr, 0)
	}
	return statusErr
}

func newGeminiProvider(args ProviderArgs) *geminiProvider {
	return &geminiProvider{
		args:   args,
		apiKey: strings.TrimSpace(args.APIKey),
	}
}

func createGeminiFactory(args ProviderArgs) (IProvider, error) {
	return newGeminiProvider(args), nil
}

func createGeminiEmbedFactory(args ProviderArgs) (IEmbedProvider, error) {
	return newGeminiProvider(args), nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
