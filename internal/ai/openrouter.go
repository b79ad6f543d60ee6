package ai

import (
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

func createOpenRouterFactory(args ProviderArgs) (IProvider, error) {
	if strings.TrimSpace(args.BaseURL) == "" {
		args.BaseURL = defaultOpenRouterBaseURL
	}
	p := newOpenAIProvider(args)
	p.name = "openrouter"
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	headers := map[string]string{}
	for k, v := range args.Headers {
		headers[k] = v
	}
	if _, ok := headers["X-Title"]; !ok {
		headers["X-Title"] = "atomic-inference"
	}
	p.headers = headers
	return p, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
