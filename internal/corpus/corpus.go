package corpus

import (
	"context"
	"fmt"

	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

// Corpus is the loaded book. It is never mutated after New returns, so one
// value can be shared by concurrent requests.
type Corpus struct {
	Sections   []model.Section
	Embeddings []model.Embedding
	// Dim is the vector length, i.e. the highest numeric column index + 1.
	Dim   int
	index map[string]int
}

type Loader interface {
	Load(ctx context.Context) (*Corpus, error)
}

func New(sections []model.Section, embeddings []model.Embedding) (*Corpus, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings: %w", appErr.ErrDataUnavailable)
	}
	dim := embeddings[0].Dim()
	seen := make(map[string]struct{}, len(embeddings))
	for _, emb := range embeddings {
		if emb.Dim() != dim {
			return nil, fmt.Errorf("embedding %q has %d values, want %d: %w", emb.SectionID, emb.Dim(), dim, appErr.ErrDataUnavailable)
		}
		if _, dup := seen[emb.SectionID]; dup {
			return nil, fmt.Errorf("duplicate embedding %q: %w", emb.SectionID, appErr.ErrDataUnavailable)
		}
		seen[emb.SectionID] = struct{}{}
	}
	index := make(map[string]int, len(sections))
	for i, s := range sections {
		if _, ok := index[s.ID]; !ok {
			index[s.ID] = i
		}
	}
	return &Corpus{Sections: sections, Embeddings: embeddings, Dim: dim, index: index}, nil
}

// Section looks a section up by its title.
func (c *Corpus) Section(id string) (model.Section, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Section{}, false
	}
	return c.Sections[i], true
}
