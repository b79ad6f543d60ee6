package schema

import (
	"github.com/invopop/jsonschema"
)

const (
	StrategyBySection   = "by_section"
	StrategyByParagraph = "by_paragraph"
	StrategyByTokens    = "by_tokens"
	StrategyHybrid      = "hybrid"

	DefaultTargetChunkSize = 500
	DefaultChunkOverlap    = 50
)

type DocumentMetadata struct {
	Title        string   `json:"title" jsonschema_description:"Document title" validate:"required"`
	Author       string   `json:"author,omitempty" jsonschema_description:"Author name if found"`
	CreatedDate  string   `json:"created_date,omitempty" jsonschema_description:"Creation or publication date"`
	Language     string   `json:"language" jsonschema:"default=en" jsonschema_description:"Primary language (ISO code)"`
	Keywords     []string `json:"keywords,omitempty" jsonschema_description:"Key topics or keywords"`
	Summary      string   `json:"summary" jsonschema_description:"Brief summary of document content"`
	DocumentType string   `json:"document_type" jsonschema:"default=unknown" jsonschema_description:"Type: article, report, manual, email, etc."`
}

func (m *DocumentMetadata) SetDefaults() {
	m.Language = "en"
	m.DocumentType = "unknown"
}

type DocumentSection struct {
	Level         int         `json:"level" jsonschema:"minimum=1,maximum=6" jsonschema_description:"Heading level (1-6)" validate:"gte=1,lte=6"`
	Title         string      `json:"title" jsonschema_description:"Section title"`
	Content       string      `json:"content,omitempty" jsonschema_description:"Section content (may be empty for parent sections)"`
	StartPosition int         `json:"start_position,omitempty" jsonschema_description:"Character position in original doc"`
	Subsections   Subsections `json:"subsections,omitempty" jsonschema_description:"Nested subsections" validate:"dive"`
}

// Subsections breaks the recursion in the reflected schema; nested items
// are described as objects of the same shape.
type Subsections []DocumentSection

func (Subsections) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "Nested subsections with the same fields as their parent",
		Items:       &jsonschema.Schema{Type: "object"},
	}
}

type TableData struct {
	Title    string     `json:"title,omitempty" jsonschema_description:"Table caption if present"`
	Headers  []string   `json:"headers,omitempty" jsonschema_description:"Column headers"`
	Rows     [][]string `json:"rows,omitempty" jsonschema_description:"Row data"`
	Position int        `json:"position,omitempty" jsonschema_description:"Position in document"`
}

type DocumentStructure struct {
	Sections      []DocumentSection `json:"sections,omitempty" jsonschema_description:"Top-level sections" validate:"dive"`
	Tables        []TableData       `json:"tables,omitempty" jsonschema_description:"Tables found in document"`
	HasTOC        bool              `json:"has_toc,omitempty" jsonschema_description:"Whether document has table of contents"`
	TotalSections int               `json:"total_sections,omitempty" jsonschema_description:"Total section count"`
}

type ChunkingStrategy struct {
	Strategy        string `json:"strategy" jsonschema:"enum=by_section,enum=by_paragraph,enum=by_tokens,enum=hybrid" jsonschema_description:"Recommended chunking strategy" validate:"oneof=by_section by_paragraph by_tokens hybrid"`
	TargetChunkSize int    `json:"target_chunk_size" jsonschema:"default=500" jsonschema_description:"Target tokens per chunk" validate:"gt=0"`
	Overlap         int    `json:"overlap" jsonschema:"default=50" jsonschema_description:"Token overlap between chunks" validate:"gte=0"`
	Reasoning       string `json:"reasoning" jsonschema_description:"Why this strategy was chosen"`
}

func (s *ChunkingStrategy) SetDefaults() {
	s.TargetChunkSize = DefaultTargetChunkSize
	s.Overlap = DefaultChunkOverlap
}

const (
	ChunkTypeSection   = "section"
	ChunkTypeParagraph = "paragraph"
	ChunkTypeTable     = "table"
	ChunkTypeMixed     = "mixed"
)

type ContentChunk struct {
	ChunkID       string                 `json:"chunk_id"`
	Content       string                 `json:"content"`
	ChunkType     string                 `json:"chunk_type" jsonschema:"enum=section,enum=paragraph,enum=table,enum=mixed"`
	ChunkIndex    int                    `json:"chunk_index"`
	StartPosition int                    `json:"start_position"`
	EndPosition   int                    `json:"end_position"`
	SectionTitle  *string                `json:"section_title"`
	PageNumber    *int                   `json:"page_number"`
	TokenCount    int                    `json:"token_count"`
	WordCount     int                    `json:"word_count"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type ExtractedDocument struct {
	FilePath         string            `json:"file_path"`
	FileName         string            `json:"file_name"`
	FileType         string            `json:"file_type"`
	Metadata         DocumentMetadata  `json:"metadata"`
	Structure        DocumentStructure `json:"structure"`
	Chunks           []ContentChunk    `json:"chunks"`
	ChunkCount       int               `json:"chunk_count"`
	TotalTokens      int               `json:"total_tokens"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
}
