package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xxxsen/askbook/internal/filestore"
	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

const titleColumn = "title"

// CSVLoader reads the pages and embeddings files from a file store on every
// Load call.
type CSVLoader struct {
	store         filestore.Store
	pagesKey      string
	embeddingsKey string
}

func NewCSVLoader(store filestore.Store, pagesKey, embeddingsKey string) *CSVLoader {
	return &CSVLoader{store: store, pagesKey: pagesKey, embeddingsKey: embeddingsKey}
}

func (l *CSVLoader) Load(ctx context.Context) (*Corpus, error) {
	var sections []model.Section
	if err := l.read(ctx, l.pagesKey, func(r io.Reader) (err error) {
		sections, err = ParsePages(r)
		return err
	}); err != nil {
		return nil, err
	}
	var embeddings []model.Embedding
	if err := l.read(ctx, l.embeddingsKey, func(r io.Reader) (err error) {
		embeddings, err = ParseEmbeddings(r)
		return err
	}); err != nil {
		return nil, err
	}
	return New(sections, embeddings)
}

func (l *CSVLoader) read(ctx context.Context, key string, parse func(io.Reader) error) error {
	rc, err := l.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w: %v", key, appErr.ErrDataUnavailable, err)
	}
	defer rc.Close()
	if err := parse(rc); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, appErr.ErrDataUnavailable)...)
}

func readHeader(r *csv.Reader) ([]string, error) {
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed("empty file")
		}
		return nil, malformed("read header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return header, nil
}

// ParsePages reads a title,tokens,content table in file order.
func ParsePages(r io.Reader) ([]model.Section, error) {
	cr := csv.NewReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	cols := map[string]int{titleColumn: -1, "tokens": -1, "content": -1}
	for i, name := range header {
		if _, ok := cols[name]; ok {
			cols[name] = i
		}
	}
	for name, idx := range cols {
		if idx < 0 {
			return nil, malformed("missing column %q", name)
		}
	}
	var sections []model.Section
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("line %d: %v", line, err)
		}
		tokens, err := strconv.Atoi(strings.TrimSpace(rec[cols["tokens"]]))
		if err != nil {
			return nil, malformed("line %d: tokens %q is not a number", line, rec[cols["tokens"]])
		}
		sections = append(sections, model.Section{
			ID:         rec[cols[titleColumn]],
			TokenCount: tokens,
			Content:    rec[cols["content"]],
		})
	}
	return sections, nil
}

// ParseEmbeddings reads a title,0,1,...,N table. Every header other than title
// must be a non-negative integer and every row must fill columns 0..N.
func ParseEmbeddings(r io.Reader) ([]model.Embedding, error) {
	cr := csv.NewReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	titleIdx := -1
	maxDim := -1
	positions := make(map[int]int, len(header))
	for i, name := range header {
		if name == titleColumn {
			titleIdx = i
			continue
		}
		dim, err := strconv.Atoi(name)
		if err != nil || dim < 0 {
			return nil, malformed("column %q is not a dimension index", name)
		}
		if _, dup := positions[dim]; dup {
			return nil, malformed("duplicate dimension column %d", dim)
		}
		positions[dim] = i
		if dim > maxDim {
			maxDim = dim
		}
	}
	if titleIdx < 0 {
		return nil, malformed("missing column %q", titleColumn)
	}
	if maxDim < 0 {
		return nil, malformed("no dimension columns")
	}
	for d := 0; d <= maxDim; d++ {
		if _, ok := positions[d]; !ok {
			return nil, malformed("missing dimension column %d", d)
		}
	}

	var embeddings []model.Embedding
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("line %d: %v", line, err)
		}
		vec := make([]float32, maxDim+1)
		for d := 0; d <= maxDim; d++ {
			raw := strings.TrimSpace(rec[positions[d]])
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return nil, malformed("line %d: column %d value %q is not a float", line, d, raw)
			}
			vec[d] = float32(v)
		}
		embeddings = append(embeddings, model.Embedding{SectionID: rec[titleIdx], Vector: vec})
	}
	return embeddings, nil
}
