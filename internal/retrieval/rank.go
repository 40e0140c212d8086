package retrieval

import (
	"fmt"
	"sort"

	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

// Score is the similarity of one section to the query.
type Score struct {
	Score     float64 `json:"score"`
	SectionID string  `json:"section_id"`
}

// DotProduct requires equal lengths.
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("query has %d values, section has %d: %w", len(a), len(b), appErr.ErrDimensionMismatch)
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// Rank scores every embedding against query and orders them by descending
// dot product. Equal scores keep the order of embeddings. All dimensions are
// checked before any scoring.
func Rank(query []float32, embeddings []model.Embedding) ([]Score, error) {
	for _, emb := range embeddings {
		if emb.Dim() != len(query) {
			return nil, fmt.Errorf("section %q: query has %d values, section has %d: %w",
				emb.SectionID, len(query), emb.Dim(), appErr.ErrDimensionMismatch)
		}
	}
	scores := make([]Score, 0, len(embeddings))
	for _, emb := range embeddings {
		dot, err := DotProduct(query, emb.Vector)
		if err != nil {
			return nil, err
		}
		scores = append(scores, Score{Score: dot, SectionID: emb.SectionID})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}
