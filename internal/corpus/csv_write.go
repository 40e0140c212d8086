package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xxxsen/askbook/internal/model"
)

// WritePages writes sections in the layout ParsePages reads.
func WritePages(w io.Writer, sections []model.Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{titleColumn, "tokens", "content"}); err != nil {
		return err
	}
	for _, s := range sections {
		if err := cw.Write([]string{s.ID, strconv.Itoa(s.TokenCount), s.Content}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEmbeddings writes one row per embedding with columns title,0..dim-1.
// All vectors must share one length.
func WriteEmbeddings(w io.Writer, embeddings []model.Embedding) error {
	if len(embeddings) == 0 {
		return fmt.Errorf("no embeddings to write")
	}
	dim := embeddings[0].Dim()
	cw := csv.NewWriter(w)
	header := make([]string, 0, dim+1)
	header = append(header, titleColumn)
	for d := 0; d < dim; d++ {
		header = append(header, strconv.Itoa(d))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, dim+1)
	for _, e := range embeddings {
		if e.Dim() != dim {
			return fmt.Errorf("embedding %q has %d values, want %d", e.SectionID, e.Dim(), dim)
		}
		row[0] = e.SectionID
		for d, v := range e.Vector {
			row[d+1] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
