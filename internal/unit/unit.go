package unit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultMaxRetries  = 3

	// MemoriesKey is reserved in template variables for injected memories.
	MemoriesKey = "memories"
)

type Renderer interface {
	Render(name string, vars map[string]interface{}) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, req *ai.CompletionRequest, out interface{}) (*ai.Usage, error)
}

// Runner is what orchestration code needs from a unit. *Unit[T] implements
// it; tests substitute scripted outputs.
type Runner[T any] interface {
	Run(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*T, error)
}

type ModelConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	MaxRetries  int     `json:"max_retries"`
}

func (c ModelConfig) validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

type Option func(o *options)

type options struct {
	cfg            ModelConfig
	systemTemplate string
}

func WithModel(name string) Option {
	return func(o *options) {
		o.cfg.Model = strings.TrimSpace(name)
	}
}

func WithTemperature(t float64) Option {
	return func(o *options) {
		o.cfg.Temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.cfg.MaxTokens = n
	}
}

func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.cfg.MaxRetries = n
	}
}

func WithSystemTemplate(name string) Option {
	return func(o *options) {
		o.systemTemplate = name
	}
}

// Unit binds one prompt template to the output type T. It holds no per
// call state and may be shared between goroutines.
type Unit[T any] struct {
	renderer       Renderer
	client         Completer
	templateName   string
	systemTemplate string
	cfg            ModelConfig
}

type InferenceResult[T any] struct {
	Data             *T     `json:"data"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Attempts         int    `json:"attempts"`
}

func New[T any](renderer Renderer, client Completer, templateName string, opts ...Option) (*Unit[T], error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if strings.TrimSpace(templateName) == "" {
		return nil, fmt.Errorf("template name is required")
	}
	o := &options{cfg: ModelConfig{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxRetries:  DefaultMaxRetries,
	}}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.Model == "" {
		o.cfg.Model = ai.DefaultModel()
	}
	if err := o.cfg.validate(); err != nil {
		return nil, err
	}
	return &Unit[T]{
		renderer:       renderer,
		client:         client,
		templateName:   templateName,
		systemTemplate: o.systemTemplate,
		cfg:            o.cfg,
	}, nil
}

func (u *Unit[T]) TemplateName() string {
	return u.templateName
}

func (u *Unit[T]) SystemTemplate() string {
	return u.systemTemplate
}

func (u *Unit[T]) Config() ModelConfig {
	return u.cfg
}

// Run renders the prompt, calls the model once through the client's
// repair loop and returns the validated output.
func (u *Unit[T]) Run(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*T, error) {
	res, err := u.RunWithUsage(ctx, vars, memories, systemVars)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (u *Unit[T]) RunWithUsage(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*InferenceResult[T], error) {
	if u.client == nil {
		return nil, fmt.Errorf("unit %s has no client", u.templateName)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("template", u.templateName), zap.String("model", u.cfg.Model))
	messages, err := u.buildMessages(vars, memories, systemVars)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out := new(T)
	usage, err := u.client.Complete(ctx, &ai.CompletionRequest{
		Model:       u.cfg.Model,
		Messages:    messages,
		Temperature: u.cfg.Temperature,
		MaxTokens:   u.cfg.MaxTokens,
		MaxRetries:  u.cfg.MaxRetries,
	}, out)
	if err != nil {
		logger.Error("inference failed", zap.Duration("cost", time.Since(start)), zap.Error(err))
		return nil, err
	}
	res := &InferenceResult[T]{Data: out, Model: u.cfg.Model}
	if usage != nil {
		res.Model = usage.Model
		res.PromptTokens = usage.PromptTokens
		res.CompletionTokens = usage.CompletionTokens
		res.Attempts = usage.Attempts
	}
	logger.Debug("inference finished",
		zap.Duration("cost", time.Since(start)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)
	return res, nil
}

// PreviewPrompt returns the rendered user prompt without calling the model.
func (u *Unit[T]) PreviewPrompt(vars map[string]interface{}, memories []model.MemoryChunk) (string, error) {
	return u.renderer.Render(u.templateName, withMemories(vars, memories))
}

func (u *Unit[T]) buildMessages(vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) ([]ai.Message, error) {
	userPrompt, err := u.renderer.Render(u.templateName, withMemories(vars, memories))
	if err != nil {
		return nil, err
	}
	messages := make([]ai.Message, 0, 2)
	if u.systemTemplate != "" {
		systemPrompt, err := u.renderer.Render(u.systemTemplate, withMemories(systemVars, memories))
		if err != nil {
			return nil, err
		}
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	}
	return append(messages, ai.Message{Role: ai.RoleUser, Content: userPrompt}), nil
}

// withMemories copies vars so the caller's map is never mutated.
func withMemories(vars map[string]interface{}, memories []model.MemoryChunk) map[string]interface{} {
	out := make(map[string]interface{}, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	if len(memories) > 0 {
		out[MemoriesKey] = model.TemplateValues(memories)
	}
	return out
}
