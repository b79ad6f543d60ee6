package ai

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSONOutput asks the provider for its native JSON mode. Schema, when
	// set, constrains that output further on providers that support it.
	JSONOutput bool
	Schema     map[string]interface{}
	SchemaName string
}

type ChatResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type IProvider interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

// ProviderArgs is what a factory receives when a client first routes a
// model to its provider.
type ProviderArgs struct {
	APIKey     string
	BaseURL    string
	Headers    map[string]string
	HTTPClient *http.Client
}

func (a ProviderArgs) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

type ProviderFactory func(args ProviderArgs) (IProvider, error)

type EmbedProviderFactory func(args ProviderArgs) (IEmbedProvider, error)

var (
	registryMu    sync.RWMutex
	registry      = map[string]ProviderFactory{}
	embedRegistry = map[string]EmbedProviderFactory{}
)

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func Register(name string, factory ProviderFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func RegisterEmbed(name string, factory EmbedProviderFactory) {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	embedRegistry[key] = factory
	registryMu.Unlock()
}

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[normalizeName(name)]
	return ok
}

func RegisteredProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewProvider(name string, args ProviderArgs) (IProvider, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, &UnsupportedProviderError{Provider: name}
	}
	p, err := factory(args)
	if err != nil {
		return nil, &UnsupportedProviderError{Provider: name, Err: err}
	}
	return p, nil
}

func NewEmbedProvider(name string, args ProviderArgs) (IEmbedProvider, error) {
	key := normalizeName(name)
	registryMu.RLock()
	factory := embedRegistry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, &UnsupportedProviderError{Provider: name}
	}
	p, err := factory(args)
	if err != nil {
		return nil, &UnsupportedProviderError{Provider: name, Err: err}
	}
	return p, nil
}

// SplitModel separates a "provider/model" identifier. Identifiers without
// a registered prefix belong to the fallback provider as a whole.
func SplitModel(id string, fallback string) (string, string) {
	id = strings.TrimSpace(id)
	if idx := strings.Index(id, "/"); idx > 0 {
		prefix := id[:idx]
		if IsRegistered(prefix) {
			return normalizeName(prefix), id[idx+1:]
		}
	}
	return normalizeName(fallback), id
}
