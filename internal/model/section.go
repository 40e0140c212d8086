package model

// Section is one passage of the book. Title doubles as its identity.
type Section struct {
	ID         string `json:"id"`
	TokenCount int    `json:"token_count"`
	Content    string `json:"content"`
}

// Embedding is the precomputed vector of one section.
type Embedding struct {
	SectionID string    `json:"section_id"`
	Vector    []float32 `json:"vector"`
}

func (e Embedding) Dim() int {
	return len(e.Vector)
}

// CorpusSection is the persisted form used by the db corpus source.
type CorpusSection struct {
	Position  int       `db:"position" json:"position"`
	Title     string    `db:"title" json:"title"`
	Tokens    int       `db:"tokens" json:"tokens"`
	Content   string    `db:"content" json:"content"`
	Embedding []float32 `db:"-" json:"embedding"`
}
