package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/askbook/internal/model"
	"github.com/xxxsen/askbook/internal/pkg/dbutil"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

var questionColumns = []string{"id", "question", "context", "answer", "ask_count", "ctime", "mtime"}

const questionReturning = "RETURNING id, question, context, answer, ask_count, ctime, mtime"

type QuestionRepo struct {
	db *sql.DB
}

func NewQuestionRepo(db *sql.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*model.QARecord, error) {
	var rec model.QARecord
	if err := row.Scan(&rec.ID, &rec.Question, &rec.Context, &rec.Answer, &rec.AskCount, &rec.Ctime, &rec.Mtime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *QuestionRepo) selectOne(ctx context.Context, where map[string]interface{}) (*model.QARecord, error) {
	where["_limit"] = []uint{0, 1}
	sqlStr, args, err := builder.BuildSelect("questions", where, questionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return scanQuestion(r.db.QueryRowContext(ctx, sqlStr, args...))
}

// FindByQuestion is an exact, case sensitive match on the normalized text.
func (r *QuestionRepo) FindByQuestion(ctx context.Context, question string) (*model.QARecord, error) {
	return r.selectOne(ctx, map[string]interface{}{"question": question})
}

func (r *QuestionRepo) GetByID(ctx context.Context, id string) (*model.QARecord, error) {
	return r.selectOne(ctx, map[string]interface{}{"id": id})
}

// Create inserts rec with ask_count 1. When another writer already stored the
// same question the existing row is incremented instead and returned, so at
// most one row exists per question.
func (r *QuestionRepo) Create(ctx context.Context, rec *model.QARecord) (*model.QARecord, error) {
	const query = `
		INSERT INTO questions (id, question, context, answer, ask_count, ctime, mtime)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (question) DO UPDATE SET
			ask_count = questions.ask_count + 1,
			mtime = EXCLUDED.mtime
		` + questionReturning
	row := r.db.QueryRowContext(ctx, query, rec.ID, rec.Question, rec.Context, rec.Answer, rec.Ctime, rec.Mtime)
	saved, err := scanQuestion(row)
	if err != nil {
		return nil, translateWriteErr(err)
	}
	return saved, nil
}

// IncrementAskCount bumps ask_count in a single statement.
func (r *QuestionRepo) IncrementAskCount(ctx context.Context, id string, now int64) (*model.QARecord, error) {
	const query = `UPDATE questions SET ask_count = ask_count + 1, mtime = $2 WHERE id = $1 ` + questionReturning
	saved, err := scanQuestion(r.db.QueryRowContext(ctx, query, id, now))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, err
		}
		return nil, translateWriteErr(err)
	}
	return saved, nil
}

func translateWriteErr(err error) error {
	switch {
	case dbutil.IsConflict(err):
		verr := appErr.NewValidationError()
		verr.Add("id", "has already been taken")
		return verr
	case dbutil.IsCheckViolation(err):
		verr := appErr.NewValidationError()
		field := dbutil.ColumnOf(err)
		if field == "" {
			field = "base"
		}
		verr.Add(field, "is invalid")
		return verr
	}
	return fmt.Errorf("%w: %w", appErr.ErrPersistence, err)
}
