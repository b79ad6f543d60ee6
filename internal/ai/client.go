package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Mode string

const (
	// ModeJSON asks providers for native JSON output.
	ModeJSON Mode = "json"
	// ModeMarkdownJSON asks for a fenced ```json block and extracts it.
	ModeMarkdownJSON Mode = "md_json"
)

const (
	defaultTimeout          = 60 * time.Second
	defaultTransportRetries = 2
	defaultBackoff          = 500 * time.Millisecond
	maxBackoff              = 10 * time.Second
	fallbackModel           = "gpt-4o-mini"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeMarkdownJSON), "markdown", "md":
		return ModeMarkdownJSON, nil
	case string(ModeJSON):
		return ModeJSON, nil
	}
	return "", fmt.Errorf("unknown mode: %s", s)
}

type Settings struct {
	DefaultProvider  string
	Mode             Mode
	Timeout          time.Duration
	RateLimit        float64
	RateBurst        int
	TransportRetries int
	Providers        map[string]ProviderArgs
}

func DefaultSettings() Settings {
	return Settings{
		DefaultProvider:  "openai",
		Mode:             ModeMarkdownJSON,
		Timeout:          defaultTimeout,
		TransportRetries: defaultTransportRetries,
		Providers:        map[string]ProviderArgs{},
	}
}

// SettingsFromEnv reads provider credentials from the process environment.
func SettingsFromEnv() Settings {
	s := DefaultSettings()
	s.Providers["openai"] = ProviderArgs{APIKey: os.Getenv("OPENAI_API_KEY"), BaseURL: os.Getenv("OPENAI_API_BASE")}
	s.Providers["anthropic"] = ProviderArgs{APIKey: os.Getenv("ANTHROPIC_API_KEY")}
	s.Providers["gemini"] = ProviderArgs{APIKey: os.Getenv("GEMINI_API_KEY")}
	s.Providers["openrouter"] = ProviderArgs{APIKey: os.Getenv("OPENROUTER_API_KEY")}
	s.Providers["ollama"] = ProviderArgs{BaseURL: os.Getenv("OLLAMA_API_BASE")}
	if m := os.Getenv("DEFAULT_MODEL"); m != "" {
		SetDefaultModel(m)
	}
	return s
}

func (s Settings) argsFor(name string) ProviderArgs {
	return s.Providers[normalizeName(name)]
}

var (
	defaultModelMu   sync.RWMutex
	defaultModelName = ""
	defaultModelOnce sync.Once
)

// DefaultModel is the process wide model used when a unit names none.
func DefaultModel() string {
	defaultModelOnce.Do(func() {
		defaultModelMu.Lock()
		if defaultModelName == "" {
			defaultModelName = os.Getenv("DEFAULT_MODEL")
		}
		defaultModelMu.Unlock()
	})
	defaultModelMu.RLock()
	defer defaultModelMu.RUnlock()
	if defaultModelName == "" {
		return fallbackModel
	}
	return defaultModelName
}

func SetDefaultModel(name string) {
	defaultModelOnce.Do(func() {})
	defaultModelMu.Lock()
	defaultModelName = strings.TrimSpace(name)
	defaultModelMu.Unlock()
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	MaxRetries  int
}

type Usage struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Attempts         int    `json:"attempts"`
}

type ClientOption func(c *Client)

func WithMode(mode Mode) ClientOption {
	return func(c *Client) {
		c.mode = mode
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit caps outgoing requests per second; zero disables it.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithTransportRetries(n int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.transportRetries = n
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithProvider installs a ready provider under name, bypassing the factory.
func WithProvider(name string, p IProvider) ClientOption {
	return func(c *Client) {
		c.providers[normalizeName(name)] = p
	}
}

type Client struct {
	settings         Settings
	mode             Mode
	timeout          time.Duration
	httpClient       *http.Client
	limiter          *rate.Limiter
	transportRetries int
	backoff          time.Duration
	validate         *validator.Validate

	mu        sync.Mutex
	providers map[string]IProvider
	schemas   sync.Map
}

func NewClient(settings Settings, opts ...ClientOption) (*Client, error) {
	if settings.DefaultProvider == "" {
		settings.DefaultProvider = "openai"
	}
	if settings.Mode == "" {
		settings.Mode = ModeMarkdownJSON
	}
	if settings.Providers == nil {
		settings.Providers = map[string]ProviderArgs{}
	}
	c := &Client{
		settings:         settings,
		mode:             settings.Mode,
		timeout:          settings.Timeout,
		transportRetries: settings.TransportRetries,
		backoff:          defaultBackoff,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		providers:        map[string]IProvider{},
	}
	WithRateLimit(settings.RateLimit, settings.RateBurst)(c)
	for _, opt := range opts {
		opt(c)
	}
	if c.mode != ModeJSON && c.mode != ModeMarkdownJSON {
		return nil, fmt.Errorf("unknown mode: %s", c.mode)
	}
	if c.transportRetries < 0 {
		c.transportRetries = 0
	}
	return c, nil
}

func (c *Client) Mode() Mode {
	return c.mode
}

func (c *Client) Settings() Settings {
	return c.settings
}

func (c *Client) provider(name string) (IProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[name]; ok {
		return p, nil
	}
	args := c.settings.argsFor(name)
	if args.HTTPClient == nil {
		args.HTTPClient = c.httpClient
	}
	p, err := NewProvider(name, args)
	if err != nil {
		return nil, err
	}
	c.providers[name] = p
	return p, nil
}

func (c *Client) schemaFor(t reflect.Type) (*outputSchema, error) {
	if v, ok := c.schemas.Load(t); ok {
		return v.(*outputSchema), nil
	}
	s, err := reflectSchema(t)
	if err != nil {
		return nil, err
	}
	v, _ := c.schemas.LoadOrStore(t, s)
	return v.(*outputSchema), nil
}

// Complete sends req to the provider its model routes to and decodes the
// answer into out, re-asking with the validation error until the answer
// validates or MaxRetries attempts are spent.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest, out interface{}) (*Usage, error) {
	if req == nil {
		return nil, fmt.Errorf("completion request is required")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("output must be a non-nil pointer, got %T", out)
	}
	modelID := req.Model
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModel()
	}
	providerName, model := SplitModel(modelID, c.settings.DefaultProvider)
	provider, err := c.provider(providerName)
	if err != nil {
		return nil, err
	}
	schema, err := c.schemaFor(rv.Elem().Type())
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("provider", providerName), zap.String("model", model))

	messages := withInstruction(req.Messages, schema.instruction(c.mode))
	attempts := req.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	usage := &Usage{Model: model}
	var lastErr error
	var raw string
	for attempt := 1; attempt <= attempts; attempt++ {
		usage.Attempts = attempt
		chatReq := &ChatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
		if c.mode == ModeJSON {
			chatReq.JSONOutput = true
			chatReq.Schema = schema.schema
			chatReq.SchemaName = schema.name
		}
		resp, err := c.chat(ctx, provider, chatReq)
		if err != nil {
			return usage, err
		}
		if resp.Model != "" {
			usage.Model = resp.Model
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		raw = resp.Content

		lastErr = c.parse(raw, rv)
		if lastErr == nil {
			logger.Debug("completion validated", zap.Int("attempt", attempt))
			return usage, nil
		}
		logger.Warn("completion failed validation", zap.Int("attempt", attempt), zap.Int("max_attempts", attempts), zap.Error(lastErr))
		messages = append(messages,
			Message{Role: RoleAssistant, Content: raw},
			Message{Role: RoleUser, Content: repairPrompt(lastErr)},
		)
	}
	return usage, &SchemaValidationError{Attempts: attempts, Err: lastErr, Raw: raw}
}

func (c *Client) parse(raw string, out reflect.Value) error {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	return decodeInto(c.validate, payload, out)
}

func repairPrompt(err error) string {
	return fmt.Sprintf("Your previous answer was rejected: %v\nReply again with a corrected JSON value that conforms to the schema.", err)
}

func (c *Client) chat(ctx context.Context, p IProvider, req *ChatRequest) (*ChatResponse, error) {
	delay := c.backoff
	for retry := 0; ; retry++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		resp, err := c.chatOnce(ctx, p, req)
		if err == nil {
			return resp, nil
		}
		wait, ok := retryDelay(err, delay)
		if !ok || retry >= c.transportRetries {
			return nil, err
		}
		logutil.GetLogger(ctx).Warn("provider request failed, retrying",
			zap.String("provider", p.Name()), zap.Int("retry", retry+1), zap.Duration("wait", wait), zap.Error(err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

func (c *Client) chatOnce(ctx context.Context, p IProvider, req *ChatRequest) (*ChatResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%s returned an empty response", p.Name())
	}
	return resp, nil
}

func retryDelay(err error, delay time.Duration) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		wait := rl.RetryAfter
		if wait < delay {
			wait = delay
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}
		return wait, true
	}
	var se *StatusError
	if errors.As(err, &se) && se.Temporary() {
		return delay, true
	}
	return 0, false
}
