package model

import "time"

// EmbeddingCache is one persisted memory vector, looked up by the embedder
// model, the task type it was requested for and the sha256 of the text.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}

func NewEmbeddingCache(modelName, taskType, contentHash string, vec []float32, now time.Time) *EmbeddingCache {
	return &EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   vec,
		Ctime:       now.Unix(),
	}
}

// Key joins the lookup columns.
func (e *EmbeddingCache) Key() string {
	return e.ModelName + ":" + e.TaskType + ":" + e.ContentHash
}

func (e *EmbeddingCache) Dim() int {
	return len(e.Embedding)
}
