package model

// EmbeddingCache is a persisted query vector. ModelName is the lookup
// namespace (the embedder configuration the caller asked for) while
// ServedBy is the entry that actually produced the vector.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	ServedBy    string    `json:"served_by"`
	Dim         int       `json:"dim"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}

// Consistent reports whether the stored dimension matches the vector.
func (c *EmbeddingCache) Consistent() bool {
	return c.Dim > 0 && c.Dim == len(c.Embedding)
}
