package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/askbook/internal/model"
)

// CorpusRepo keeps a copy of the book corpus in postgres.
type CorpusRepo struct {
	db *sqlx.DB
}

func NewCorpusRepo(db *sql.DB) *CorpusRepo {
	return &CorpusRepo{db: sqlx.NewDb(db, "postgres")}
}

type corpusRow struct {
	Position  int             `db:"position"`
	Title     string          `db:"title"`
	Tokens    int             `db:"tokens"`
	Content   string          `db:"content"`
	Embedding pgvector.Vector `db:"embedding"`
}

// ListOrdered returns every section in corpus order.
func (r *CorpusRepo) ListOrdered(ctx context.Context) ([]model.CorpusSection, error) {
	var rows []corpusRow
	const query = `SELECT position, title, tokens, content, embedding FROM corpus_sections ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]model.CorpusSection, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.CorpusSection{
			Position:  row.Position,
			Title:     row.Title,
			Tokens:    row.Tokens,
			Content:   row.Content,
			Embedding: row.Embedding.Slice(),
		})
	}
	return out, nil
}

// ReplaceAll swaps the stored corpus for items inside one transaction.
func (r *CorpusRepo) ReplaceAll(ctx context.Context, items []model.CorpusSection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_sections`); err != nil {
		return err
	}
	const insert = `
		INSERT INTO corpus_sections (position, title, tokens, content, embedding)
		VALUES (:position, :title, :tokens, :content, :embedding)
	`
	for _, item := range items {
		row := corpusRow{
			Position:  item.Position,
			Title:     item.Title,
			Tokens:    item.Tokens,
			Content:   item.Content,
			Embedding: pgvector.NewVector(item.Embedding),
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CorpusRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM corpus_sections`); err != nil {
		return 0, err
	}
	return n, nil
}
