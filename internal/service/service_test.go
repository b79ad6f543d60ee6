package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/filestore"
	"github.com/chnghia/atomic-inference-boilerplate/internal/loader"
	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pipeline"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/render"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
)

// cannedCompleter answers every unit with a fixed payload chosen by the
// output type, recording the prompts it was sent.
type cannedCompleter struct {
	mu    sync.Mutex
	calls int
	reqs  []*ai.CompletionRequest
	route string
}

func (c *cannedCompleter) Complete(ctx context.Context, req *ai.CompletionRequest, out interface{}) (*ai.Usage, error) {
	c.mu.Lock()
	c.calls++
	c.reqs = append(c.reqs, req)
	route := c.route
	c.mu.Unlock()
	if route == "" {
		route = schema.AgentChat
	}
	var raw string
	switch out.(type) {
	case *schema.Summary:
		raw = `{"summary":"short","key_points":["one"]}`
	case *schema.Classification:
		raw = `{"label":"positive","confidence":0.9}`
	case *schema.EntityList:
		raw = `{"confidence":1,"entities":[{"name":"Ada","entity_type":"person"}]}`
	case *schema.DocumentMetadata:
		raw = `{"title":"Notes","language":"en","summary":"notes","document_type":"article"}`
	case *schema.DocumentStructure:
		raw = `{"sections":[]}`
	case *schema.ChunkingStrategy:
		raw = `{"strategy":"by_paragraph","target_chunk_size":20,"overlap":2,"reasoning":"short"}`
	case *schema.ReasoningStep:
		raw = `{"thought":"known","action":"respond","action_input":"42"}`
	case *schema.RoutingDecision:
		raw = fmt.Sprintf(`{"intent":"x","selected_agent":%q,"reasoning":"r","confidence":0.8}`, route)
	case *schema.SearchAgentOutput:
		raw = `{"query_understanding":"q","results":["r"],"summary":"found it"}`
	case *schema.AnalyzeAgentOutput:
		raw = `{"analysis_type":"comparison","key_findings":["k"],"conclusion":"same"}`
	case *schema.ChatAgentOutput:
		raw = `{"response":"hello there","tone":"friendly"}`
	default:
		return nil, fmt.Errorf("unexpected output %T", out)
	}
	return &ai.Usage{Model: req.Model, PromptTokens: 7, CompletionTokens: 3, Attempts: 1}, json.Unmarshal([]byte(raw), out)
}

func (c *cannedCompleter) lastPrompt(role string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := c.reqs[len(c.reqs)-1]
	for _, m := range req.Messages {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}

func newCatalog(t *testing.T, c *cannedCompleter) *Catalog {
	t.Helper()
	r, err := render.New(filepath.Join("..", "..", "templates"))
	require.NoError(t, err)
	cat, err := NewCatalog(r, c, "openai/gpt-4o-mini")
	require.NoError(t, err)
	return cat
}

func TestCatalog_ListsBuiltins(t *testing.T) {
	cat := newCatalog(t, &cannedCompleter{})
	names := cat.Names()
	require.Len(t, names, 11)
	require.True(t, strings.Compare(names[0], names[1]) < 0)

	byName := map[string]UnitInfo{}
	for _, info := range cat.List() {
		byName[info.Name] = info
	}
	assert.Equal(t, "summarize.j2", byName[UnitSummarize].Template)
	assert.Equal(t, SystemTemplate, byName[UnitSummarize].SystemTemplate)
	assert.Equal(t, "Summary", byName[UnitSummarize].Output)
	assert.Equal(t, extractionMaxTokens, byName[UnitDocumentMetadata].MaxTokens)
	assert.Equal(t, 0.7, byName[UnitChatAgent].Temperature)
	assert.Equal(t, 0.5, byName[UnitSearchAgent].Temperature)
	assert.Equal(t, "openai/gpt-4o-mini", byName[UnitRouting].Model)
}

func TestInferenceService_RunUnknownUnit(t *testing.T) {
	svc := NewInferenceService(newCatalog(t, &cannedCompleter{}), nil, 0)
	_, err := svc.Run(context.Background(), "nope", nil)
	require.ErrorIs(t, err, appErr.ErrUnknownUnit)
	require.True(t, appErr.IsNotFound(err))
}

func TestInferenceService_RunInjectsMemories(t *testing.T) {
	ctx := context.Background()
	c := &cannedCompleter{}
	store := memory.NewNaiveStore()
	_, err := store.Add(ctx, "Go ships a race detector", map[string]interface{}{memory.SourceKey: "go.md"})
	require.NoError(t, err)

	svc := NewInferenceService(newCatalog(t, c), store, 3)
	res, err := svc.Run(ctx, "Summarize", &RunInput{
		Vars:        map[string]interface{}{"text": "long text"},
		MemoryQuery: "race detector",
	})
	require.NoError(t, err)
	require.Equal(t, UnitSummarize, res.Unit)
	require.Equal(t, 7, res.PromptTokens)
	require.Equal(t, "short", res.Data.(*schema.Summary).Summary)

	user := c.lastPrompt(ai.RoleUser)
	require.Contains(t, user, "Go ships a race detector (Source: go.md)")
	require.Contains(t, user, "long text")
	require.Contains(t, c.lastPrompt(ai.RoleSystem), "Today is ")
}

func TestInferenceService_MemoryQueryWithoutStore(t *testing.T) {
	svc := NewInferenceService(newCatalog(t, &cannedCompleter{}), nil, 0)
	_, err := svc.Run(context.Background(), UnitSummarize, &RunInput{MemoryQuery: "x"})
	require.ErrorIs(t, err, appErr.ErrMemoryDisabled)
}

func TestInferenceService_PreviewMakesNoCalls(t *testing.T) {
	c := &cannedCompleter{}
	svc := NewInferenceService(newCatalog(t, c), nil, 0)
	res, err := svc.Preview(context.Background(), UnitClassify, &RunInput{
		Vars: map[string]interface{}{"text": "great", "labels": []string{"positive", "negative"}},
	})
	require.NoError(t, err)
	require.Contains(t, res.Prompt, "- positive\n- negative")
	require.Zero(t, c.calls)
}

func TestMemoryService_Disabled(t *testing.T) {
	svc := NewMemoryService(nil, 0)
	ctx := context.Background()
	_, err := svc.Add(ctx, []memory.Document{{Content: "x"}})
	require.ErrorIs(t, err, appErr.ErrMemoryDisabled)
	_, err = svc.Search(ctx, "x", 1)
	require.ErrorIs(t, err, appErr.ErrMemoryDisabled)
	require.ErrorIs(t, svc.Delete(ctx, "doc_1"), appErr.ErrMemoryDisabled)
}

func TestMemoryService_AddSearchDelete(t *testing.T) {
	svc := NewMemoryService(memory.NewNaiveStore(), 2)
	ctx := context.Background()

	_, err := svc.Add(ctx, []memory.Document{{Content: " "}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	ids, err := svc.Add(ctx, []memory.Document{{Content: "apples are red"}, {Content: "bananas are yellow"}})
	require.NoError(t, err)
	require.Equal(t, []string{"doc_1", "doc_2"}, ids)

	hits, err := svc.Search(ctx, "apples", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "apples are red", hits[0].Content)

	require.NoError(t, svc.Delete(ctx, "doc_1"))
	require.ErrorIs(t, svc.Delete(ctx, "doc_1"), appErr.ErrNotFound)
	n, err := svc.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func newDocumentService(t *testing.T, c *cannedCompleter, outDir string) *DocumentService {
	t.Helper()
	loaders := loader.Default()
	extractor, err := pipeline.NewExtractor(loaders, newCatalog(t, c).PipelineUnits())
	require.NoError(t, err)
	out, err := filestore.New(config.FileStoreConfig{Type: "local", Dir: outDir})
	require.NoError(t, err)
	batch, err := pipeline.NewBatch(extractor, pipeline.WithOutput(out), pipeline.WithWorkers(2))
	require.NoError(t, err)
	return NewDocumentService(loaders, extractor, batch, out)
}

func TestDocumentService_ExtractAndSave(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("First sentence here. Second sentence follows. Third one ends it."), 0o644))

	c := &cannedCompleter{}
	svc := newDocumentService(t, c, outDir)
	res, err := svc.Extract(context.Background(), path, true)
	require.NoError(t, err)
	require.Equal(t, "Notes", res.Document.Metadata.Title)
	require.NotEmpty(t, res.Document.Chunks)
	require.Equal(t, 3, c.calls)

	raw, err := os.ReadFile(filepath.Join(outDir, "notes.json"))
	require.NoError(t, err)
	var saved schema.ExtractedDocument
	require.NoError(t, json.Unmarshal(raw, &saved))
	require.Equal(t, res.Document.ChunkCount, saved.ChunkCount)
}

func TestDocumentService_WithUpload(t *testing.T) {
	svc := newDocumentService(t, &cannedCompleter{}, t.TempDir())
	ctx := context.Background()

	err := svc.WithUpload(ctx, "image.png", strings.NewReader("x"), func(string) error { return nil })
	require.ErrorIs(t, err, appErr.ErrUnsupportedFormat)

	var seen string
	err = svc.WithUpload(ctx, "../readme.md", strings.NewReader("# Title\n\nbody"), func(path string) error {
		seen = path
		doc, err := svc.Load(ctx, path)
		require.NoError(t, err)
		require.Equal(t, "readme.md", doc.FileName)
		return nil
	})
	require.NoError(t, err)
	_, err = os.Stat(seen)
	require.True(t, os.IsNotExist(err))
}

func TestDocumentService_Batch(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Alpha text."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B\n\nBeta text."), 0o644))
	report := filepath.Join(t.TempDir(), "report.xlsx")

	svc := newDocumentService(t, &cannedCompleter{}, outDir)
	res, err := svc.Batch(context.Background(), dir, report)
	require.NoError(t, err)
	require.Equal(t, 2, res.Summary.TotalFiles)
	require.Equal(t, 2, res.Summary.Successful)
	require.FileExists(t, report)
	require.FileExists(t, filepath.Join(outDir, "a.json"))
}

func TestAgentService(t *testing.T) {
	c := &cannedCompleter{route: schema.AgentSearch}
	store := memory.NewNaiveStore()
	_, err := store.Add(context.Background(), "the answer is 42", nil)
	require.NoError(t, err)
	svc, err := NewAgentService(newCatalog(t, c), store, 3, 2)
	require.NoError(t, err)

	state, err := svc.React(context.Background(), "what is the answer?")
	require.NoError(t, err)
	require.Equal(t, "42", state.Final.Answer)

	routed, err := svc.Route(context.Background(), "find the answer")
	require.NoError(t, err)
	require.Equal(t, schema.AgentSearch, routed.Response.AgentName)
	require.Equal(t, "found it", routed.Response.ResponseText)

	_, err = svc.Route(context.Background(), " ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
