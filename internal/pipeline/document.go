// Package pipeline turns files into ExtractedDocument values: load, three
// inference stages, then chunking. Batch runs it over a directory.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/loader"
	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
	"github.com/chnghia/atomic-inference-boilerplate/internal/unit"
)

const (
	// charsPerToken approximates tokens from characters when sizing windows.
	charsPerToken = 4
	// wordsPerToken is the inverse estimate used for token counts.
	wordsPerToken = 4
)

type Units struct {
	Metadata  unit.Runner[schema.DocumentMetadata]
	Structure unit.Runner[schema.DocumentStructure]
	Strategy  unit.Runner[schema.ChunkingStrategy]
}

type Extractor struct {
	loaders *loader.Registry
	units   Units
	memory  memory.Store
}

type ExtractorOption func(e *Extractor)

// WithMemory adds every produced chunk to store, tagged with its file and
// chunk id.
func WithMemory(store memory.Store) ExtractorOption {
	return func(e *Extractor) {
		e.memory = store
	}
}

func NewExtractor(loaders *loader.Registry, units Units, opts ...ExtractorOption) (*Extractor, error) {
	if loaders == nil {
		return nil, fmt.Errorf("loader registry is required")
	}
	if units.Metadata == nil || units.Structure == nil || units.Strategy == nil {
		return nil, fmt.Errorf("metadata, structure and strategy units are required")
	}
	e := &Extractor{loaders: loaders, units: units}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Extractor) Loaders() *loader.Registry {
	return e.loaders
}

func (e *Extractor) Extract(ctx context.Context, path string) (*schema.ExtractedDocument, error) {
	start := time.Now()
	logger := logutil.GetLogger(ctx).With(zap.String("path", path))

	doc, err := e.loaders.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Info("document loaded", zap.Int("words", doc.WordCount), zap.Int("sections", len(doc.RawSections)))

	sections := sectionValues(doc.RawSections)
	metadata, err := e.units.Metadata.Run(ctx, map[string]interface{}{
		"content":      doc.Content,
		"raw_sections": sections,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}
	logger.Debug("metadata extracted", zap.String("title", metadata.Title), zap.String("language", metadata.Language))

	structure, err := e.units.Structure.Run(ctx, map[string]interface{}{
		"content":      doc.Content,
		"raw_sections": sections,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("discover structure: %w", err)
	}
	logger.Debug("structure discovered", zap.Int("sections", structure.TotalSections), zap.Int("tables", len(structure.Tables)))

	structureValue, err := toValue(structure)
	if err != nil {
		return nil, err
	}
	strategy, err := e.units.Strategy.Run(ctx, map[string]interface{}{
		"file_name":  doc.FileName,
		"file_type":  doc.FileType,
		"word_count": doc.WordCount,
		"char_count": doc.CharCount(),
		"structure":  structureValue,
		"content":    doc.Content,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("decide chunking strategy: %w", err)
	}

	chunks := CreateChunks(doc, structure, strategy)
	total := 0
	for _, c := range chunks {
		total += c.TokenCount
	}
	if e.memory != nil {
		if err := e.remember(ctx, doc, chunks); err != nil {
			return nil, err
		}
	}
	out := &schema.ExtractedDocument{
		FilePath:         doc.FilePath,
		FileName:         doc.FileName,
		FileType:         doc.FileType,
		Metadata:         *metadata,
		Structure:        *structure,
		Chunks:           chunks,
		ChunkCount:       len(chunks),
		TotalTokens:      total,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	logger.Info("extraction complete",
		zap.String("strategy", strategy.Strategy),
		zap.Int("chunks", out.ChunkCount),
		zap.Int64("cost_ms", out.ProcessingTimeMS))
	return out, nil
}

func (e *Extractor) remember(ctx context.Context, doc *loader.RawDocument, chunks []schema.ContentChunk) error {
	docs := make([]memory.Document, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		docs = append(docs, memory.Document{
			Content: c.Content,
			Metadata: map[string]interface{}{
				memory.SourceKey: doc.FileName,
				"chunk_id":       c.ChunkID,
				"chunk_index":    c.ChunkIndex,
			},
		})
	}
	if _, err := e.memory.AddMany(ctx, docs); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// CreateChunks splits a loaded document. by_section uses the discovered
// top-level sections when there are any; every other strategy uses
// sentence snapped windows sized in approximate tokens.
func CreateChunks(doc *loader.RawDocument, structure *schema.DocumentStructure, strategy *schema.ChunkingStrategy) []schema.ContentChunk {
	size := strategy.TargetChunkSize * charsPerToken
	overlap := strategy.Overlap * charsPerToken
	chunks := []schema.ContentChunk{}

	if strategy.Strategy == schema.StrategyBySection && structure != nil && len(structure.Sections) > 0 {
		for i, section := range structure.Sections {
			text := section.Title
			if section.Content != "" {
				text = truncateRunes(section.Content, size)
			}
			title := section.Title
			words := textutil.CountWords(text)
			chunks = append(chunks, schema.ContentChunk{
				ChunkID:       fmt.Sprintf("%s_%d", doc.FileName, i),
				Content:       text,
				ChunkType:     schema.ChunkTypeSection,
				ChunkIndex:    i,
				StartPosition: section.StartPosition,
				EndPosition:   section.StartPosition + len([]rune(text)),
				SectionTitle:  &title,
				WordCount:     words,
				TokenCount:    words / wordsPerToken,
				Metadata:      map[string]interface{}{},
			})
		}
		return chunks
	}

	for i, span := range textutil.ChunkSentences(doc.Content, size, overlap) {
		words := textutil.CountWords(span.Text)
		chunks = append(chunks, schema.ContentChunk{
			ChunkID:       textutil.HashText(fmt.Sprintf("%s_%d", doc.FileName, i)),
			Content:       span.Text,
			ChunkType:     schema.ChunkTypeParagraph,
			ChunkIndex:    i,
			StartPosition: span.Start,
			EndPosition:   span.End,
			WordCount:     words,
			TokenCount:    words / wordsPerToken,
			Metadata:      map[string]interface{}{},
		})
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sectionValues(sections []loader.Section) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		out = append(out, map[string]interface{}{
			"title":    s.Title,
			"position": s.Position,
			"level":    s.Level,
		})
	}
	return out
}

// toValue converts v to plain maps so templates can use json field names.
func toValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode template value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode template value: %w", err)
	}
	return out, nil
}
