package service

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/chnghia/atomic-inference-boilerplate/internal/graph"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
	"github.com/chnghia/atomic-inference-boilerplate/internal/unit"
)

const (
	UnitSummarize         = "summarize"
	UnitClassify          = "classify"
	UnitEntities          = "entities"
	UnitDocumentMetadata  = "document_metadata"
	UnitDocumentStructure = "document_structure"
	UnitChunkStrategy     = "chunk_strategy"
	UnitReasoning         = "reasoning"
	UnitRouting           = "routing"
	UnitSearchAgent       = "search_agent"
	UnitAnalyzeAgent      = "analyze_agent"
	UnitChatAgent         = "chat_agent"

	SystemTemplate = "system/assistant.j2"

	extractionMaxTokens = 12800
)

type UnitInfo struct {
	Name           string  `json:"name"`
	Template       string  `json:"template"`
	SystemTemplate string  `json:"system_template,omitempty"`
	Output         string  `json:"output"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	MaxRetries     int     `json:"max_retries"`
}

type RunResult struct {
	Unit             string      `json:"unit"`
	Data             interface{} `json:"data"`
	Model            string      `json:"model"`
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	Attempts         int         `json:"attempts"`
}

// namedUnit erases the output type of a unit so units with different
// schemas can live in one catalog.
type namedUnit interface {
	Info() UnitInfo
	Run(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*RunResult, error)
	Preview(vars map[string]interface{}, memories []model.MemoryChunk) (string, error)
}

type entry[T any] struct {
	name string
	u    *unit.Unit[T]
}

func (e *entry[T]) Info() UnitInfo {
	cfg := e.u.Config()
	return UnitInfo{
		Name:           e.name,
		Template:       e.u.TemplateName(),
		SystemTemplate: e.u.SystemTemplate(),
		Output:         reflect.TypeOf((*T)(nil)).Elem().Name(),
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		MaxRetries:     cfg.MaxRetries,
	}
}

func (e *entry[T]) Run(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*RunResult, error) {
	res, err := e.u.RunWithUsage(ctx, vars, memories, systemVars)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		Unit:             e.name,
		Data:             res.Data,
		Model:            res.Model,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		Attempts:         res.Attempts,
	}, nil
}

func (e *entry[T]) Preview(vars map[string]interface{}, memories []model.MemoryChunk) (string, error) {
	return e.u.PreviewPrompt(vars, memories)
}

// Catalog holds the built-in units by name plus typed handles for the
// pipeline and agents.
type Catalog struct {
	units map[string]namedUnit

	metadata  *unit.Unit[schema.DocumentMetadata]
	structure *unit.Unit[schema.DocumentStructure]
	strategy  *unit.Unit[schema.ChunkingStrategy]
	reasoning *unit.Unit[schema.ReasoningStep]
	routing   *unit.Unit[schema.RoutingDecision]
	search    *unit.Unit[schema.SearchAgentOutput]
	analyze   *unit.Unit[schema.AnalyzeAgentOutput]
	chat      *unit.Unit[schema.ChatAgentOutput]
}

func register[T any](c *Catalog, name string, u *unit.Unit[T]) *unit.Unit[T] {
	c.units[name] = &entry[T]{name: name, u: u}
	return u
}

// NewCatalog builds every built-in unit against renderer and client. An
// empty modelName falls back to the process default model.
func NewCatalog(renderer unit.Renderer, client unit.Completer, modelName string) (*Catalog, error) {
	c := &Catalog{units: make(map[string]namedUnit)}
	var errs []string
	build := func(err error, name string) {
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	opts := func(temp float64, extra ...unit.Option) []unit.Option {
		return append([]unit.Option{unit.WithModel(modelName), unit.WithTemperature(temp)}, extra...)
	}

	summarize, err := unit.New[schema.Summary](renderer, client, "summarize.j2", opts(0.3, unit.WithSystemTemplate(SystemTemplate))...)
	build(err, UnitSummarize)
	classify, err := unit.New[schema.Classification](renderer, client, "classify.j2", opts(0.3, unit.WithSystemTemplate(SystemTemplate))...)
	build(err, UnitClassify)
	entities, err := unit.New[schema.EntityList](renderer, client, "entities.j2", opts(0.3, unit.WithSystemTemplate(SystemTemplate))...)
	build(err, UnitEntities)

	c.metadata, err = unit.New[schema.DocumentMetadata](renderer, client, "extraction/metadata.j2", opts(0.3, unit.WithMaxTokens(extractionMaxTokens))...)
	build(err, UnitDocumentMetadata)
	c.structure, err = unit.New[schema.DocumentStructure](renderer, client, "extraction/structure.j2", opts(0.3, unit.WithMaxTokens(extractionMaxTokens))...)
	build(err, UnitDocumentStructure)
	c.strategy, err = unit.New[schema.ChunkingStrategy](renderer, client, "extraction/chunk_strategy.j2", opts(0.3, unit.WithMaxTokens(extractionMaxTokens))...)
	build(err, UnitChunkStrategy)

	c.reasoning, err = unit.New[schema.ReasoningStep](renderer, client, "agents/reasoning.j2", opts(0.3)...)
	build(err, UnitReasoning)
	c.routing, err = unit.New[schema.RoutingDecision](renderer, client, "agents/routing.j2", opts(0.3)...)
	build(err, UnitRouting)
	c.search, err = unit.New[schema.SearchAgentOutput](renderer, client, "agents/search.j2", opts(0.5)...)
	build(err, UnitSearchAgent)
	c.analyze, err = unit.New[schema.AnalyzeAgentOutput](renderer, client, "agents/analyze.j2", opts(0.5)...)
	build(err, UnitAnalyzeAgent)
	c.chat, err = unit.New[schema.ChatAgentOutput](renderer, client, "agents/chat.j2", opts(0.7, unit.WithSystemTemplate(SystemTemplate))...)
	build(err, UnitChatAgent)

	if len(errs) > 0 {
		return nil, fmt.Errorf("build unit catalog: %s", strings.Join(errs, "; "))
	}
	register(c, UnitSummarize, summarize)
	register(c, UnitClassify, classify)
	register(c, UnitEntities, entities)
	register(c, UnitDocumentMetadata, c.metadata)
	register(c, UnitDocumentStructure, c.structure)
	register(c, UnitChunkStrategy, c.strategy)
	register(c, UnitReasoning, c.reasoning)
	register(c, UnitRouting, c.routing)
	register(c, UnitSearchAgent, c.search)
	register(c, UnitAnalyzeAgent, c.analyze)
	register(c, UnitChatAgent, c.chat)
	return c, nil
}

func (c *Catalog) get(name string) (namedUnit, error) {
	u, ok := c.units[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnknownUnit, name)
	}
	return u, nil
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.units))
	for name := range c.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) List() []UnitInfo {
	names := c.Names()
	infos := make([]UnitInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, c.units[name].Info())
	}
	return infos
}

func (c *Catalog) PipelineUnits() pipeline.Units {
	return pipeline.Units{Metadata: c.metadata, Structure: c.structure, Strategy: c.strategy}
}

func (c *Catalog) RouterUnits() graph.RouterUnits {
	return graph.RouterUnits{Routing: c.routing, Search: c.search, Analyze: c.analyze, Chat: c.chat}
}

func (c *Catalog) Reasoning() unit.Runner[schema.ReasoningStep] {
	return c.reasoning
}
