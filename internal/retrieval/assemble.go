package retrieval

import (
	"fmt"
	"unicode/utf8"

	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

type SectionSource interface {
	Section(id string) (model.Section, bool)
}

// Assembler picks ranked sections until Budget tokens are used up.
type Assembler struct {
	Budget    int
	Separator string
}

// Assemble walks ranking in order. Each section costs its token count plus
// the separator length. Sections that fit are added whole; the first one that
// does not is cut down to the budget left before it and ends the walk.
func (a Assembler) Assemble(ranking []Score, sections SectionSource) ([]string, error) {
	sepLen := utf8.RuneCountInString(a.Separator)
	chosen := make([]string, 0, len(ranking))
	total := 0
	for _, item := range ranking {
		section, ok := sections.Section(item.SectionID)
		if !ok {
			return nil, fmt.Errorf("ranked section %q has no page: %w", item.SectionID, appErr.ErrDataUnavailable)
		}
		total += section.TokenCount + sepLen
		if total > a.Budget {
			spaceLeft := a.Budget - total + section.TokenCount
			chosen = append(chosen, a.Separator+TruncateChars(section.Content, spaceLeft))
			break
		}
		chosen = append(chosen, a.Separator+section.Content)
	}
	return chosen, nil
}

// TruncateChars keeps the first n characters of s. Token budgets are applied
// to characters here, so the cut is only an approximation of n tokens.
func TruncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
