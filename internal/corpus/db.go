package corpus

import (
	"context"
	"fmt"

	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

type sectionLister interface {
	ListOrdered(ctx context.Context) ([]model.CorpusSection, error)
}

// DBLoader reads the corpus copied into postgres by the import-corpus command.
type DBLoader struct {
	repo sectionLister
}

func NewDBLoader(repo sectionLister) *DBLoader {
	return &DBLoader{repo: repo}
}

func (l *DBLoader) Load(ctx context.Context) (*Corpus, error) {
	rows, err := l.repo.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus sections: %w: %v", appErr.ErrDataUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("corpus table is empty: %w", appErr.ErrDataUnavailable)
	}
	sections := make([]model.Section, 0, len(rows))
	embeddings := make([]model.Embedding, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, model.Section{ID: row.Title, TokenCount: row.Tokens, Content: row.Content})
		embeddings = append(embeddings, model.Embedding{SectionID: row.Title, Vector: row.Embedding})
	}
	return New(sections, embeddings)
}

// ToRows flattens a corpus into the persisted layout. Sections without an
// embedding are skipped.
func ToRows(c *Corpus) []model.CorpusSection {
	rows := make([]model.CorpusSection, 0, len(c.Embeddings))
	for _, emb := range c.Embeddings {
		section, ok := c.Section(emb.SectionID)
		if !ok {
			continue
		}
		rows = append(rows, model.CorpusSection{
			Position:  len(rows),
			Title:     section.ID,
			Tokens:    section.TokenCount,
			Content:   section.Content,
			Embedding: emb.Vector,
		})
	}
	return rows
}
