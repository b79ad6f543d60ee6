package model

// MemoryRecord is a stored memory row. Embedding is nil for lexical stores.
type MemoryRecord struct {
	ID         string                 `json:"id"`
	Collection string                 `json:"collection"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Embedding  []float32              `json:"embedding,omitempty"`
	Ctime      int64                  `json:"ctime"`
}

// ScoredRecord pairs a record with its distance to a query vector.
type ScoredRecord struct {
	MemoryRecord
	Distance float64 `json:"distance"`
}
