package model

// MemoryChunk is one retrieved context snippet handed to a prompt template.
type MemoryChunk struct {
	Content  string                 `json:"content"`
	Source   string                 `json:"source,omitempty"`
	Score    *float64               `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TemplateValue exposes the chunk to templates with lowercase keys.
func (m MemoryChunk) TemplateValue() map[string]interface{} {
	v := map[string]interface{}{
		"content":  m.Content,
		"source":   m.Source,
		"metadata": m.Metadata,
	}
	if m.Score != nil {
		v["score"] = *m.Score
	} else {
		v["score"] = nil
	}
	return v
}

func TemplateValues(chunks []MemoryChunk) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.TemplateValue())
	}
	return out
}

func ScorePtr(v float64) *float64 {
	return &v
}
