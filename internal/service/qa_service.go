package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/corpus"
	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
	"github.com/xxxsen/askbook/internal/pkg/keylock"
	"github.com/xxxsen/askbook/internal/prompt"
	"github.com/xxxsen/askbook/internal/retrieval"
)

const (
	DefaultBudget    = 500
	DefaultSeparator = "\n* "
	DefaultMaxTokens = 150

	queryTaskType = "RETRIEVAL_QUERY"
)

// QuestionStore persists QARecords. Create and IncrementAskCount must be
// atomic at the storage layer.
type QuestionStore interface {
	FindByQuestion(ctx context.Context, question string) (*model.QARecord, error)
	GetByID(ctx context.Context, id string) (*model.QARecord, error)
	Create(ctx context.Context, rec *model.QARecord) (*model.QARecord, error)
	IncrementAskCount(ctx context.Context, id string, now int64) (*model.QARecord, error)
}

type QAConfig struct {
	Budget      int
	Separator   string
	MaxTokens   int
	Temperature float32
	Preamble    string
	// Timeout bounds each embedding and completion call. Zero disables it.
	Timeout time.Duration
}

type AskResult struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	AskCount int    `json:"ask_count"`
	Cached   bool   `json:"cached"`
}

type QAService struct {
	store     QuestionStore
	corpus    corpus.Loader
	embedder  ai.IEmbedder
	generator ai.IGenerator
	prompts   *prompt.Builder
	assembler retrieval.Assembler
	cfg       QAConfig
	locks     *keylock.KeyLock
	now       func() time.Time
}

func NewQAService(store QuestionStore, loader corpus.Loader, embedder ai.IEmbedder, generator ai.IGenerator, cfg QAConfig) *QAService {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &QAService{
		store:     store,
		corpus:    loader,
		embedder:  embedder,
		generator: generator,
		prompts:   prompt.NewBuilder(cfg.Preamble),
		assembler: retrieval.Assembler{Budget: cfg.Budget, Separator: cfg.Separator},
		cfg:       cfg,
		locks:     keylock.New(),
		now:       time.Now,
	}
}

// Normalize trims raw and makes sure it ends with a single question mark
// appended when missing. Matching on the result is exact and case
// sensitive.
func Normalize(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return "", fmt.Errorf("question is blank: %w", appErr.ErrInput)
	}
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	if utf8.RuneCountInString(q) > model.MaxQuestionLen {
		return "", fmt.Errorf("question longer than %d characters: %w", model.MaxQuestionLen, appErr.ErrInput)
	}
	return q, nil
}

// Ask answers raw from the question cache when possible and otherwise runs
// retrieval and completion, then stores the new record. Nothing is stored
// when any step before persistence fails.
func (s *QAService) Ask(ctx context.Context, raw string) (*AskResult, error) {
	question, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	unlock := s.locks.Lock(question)
	defer unlock()

	existing, err := s.store.FindByQuestion(ctx, question)
	switch {
	case err == nil:
		rec, err := s.store.IncrementAskCount(ctx, existing.ID, s.now().Unix())
		if err != nil {
			logger.Error("failed to increment ask count", zap.String("id", existing.ID), zap.Error(err))
			return nil, fmt.Errorf("increment ask count: %w", err)
		}
		logger.Info("question cache hit", zap.String("id", rec.ID), zap.Int("ask_count", rec.AskCount))
		return toResult(rec, true), nil
	case !appErr.IsNotFound(err):
		logger.Error("failed to look up question", zap.Error(err))
		return nil, fmt.Errorf("look up question: %w", err)
	}

	answer, contextText, err := s.generate(ctx, question)
	if err != nil {
		logger.Error("failed to generate answer", zap.Error(err))
		return nil, err
	}

	now := s.now().Unix()
	rec := &model.QARecord{
		ID:       newID(),
		Question: question,
		Context:  contextText,
		Answer:   answer,
		AskCount: 1,
		Ctime:    now,
		Mtime:    now,
	}
	if err := rec.Validate(); err != nil {
		logger.Warn("answer record failed validation", zap.Error(err))
		return nil, err
	}
	saved, err := s.store.Create(ctx, rec)
	if err != nil {
		logger.Error("failed to save answer", zap.Error(err))
		return nil, err
	}
	// Another process may have stored the same question first.
	cached := saved.ID != rec.ID
	logger.Info("question answered", zap.String("id", saved.ID), zap.Bool("cached", cached))
	return toResult(saved, cached), nil
}

func (s *QAService) generate(ctx context.Context, question string) (string, string, error) {
	c, err := s.corpus.Load(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load corpus: %w", err)
	}
	if s.embedder == nil || s.generator == nil {
		return "", "", serviceErr("answer", ai.ErrUnavailable)
	}

	embedCtx, cancel := s.callContext(ctx)
	emb, err := s.embedder.Embed(embedCtx, question, queryTaskType)
	cancel()
	if err != nil {
		return "", "", serviceErr("embed question", err)
	}

	ranking, err := retrieval.Rank(emb.Vector, c.Embeddings)
	if err != nil {
		return "", "", fmt.Errorf("rank sections: %w", err)
	}
	snippets, err := s.assembler.Assemble(ranking, c)
	if err != nil {
		return "", "", fmt.Errorf("assemble context: %w", err)
	}
	promptText, contextText := s.prompts.Build(question, snippets)
	logutil.GetLogger(ctx).Debug("prompt built",
		zap.Int("sections", len(snippets)),
		zap.Int("prompt_len", len(promptText)),
	)

	genCtx, cancel := s.callContext(ctx)
	res, err := s.generator.Generate(genCtx, promptText, ai.CompletionOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	cancel()
	if err != nil {
		return "", "", serviceErr("complete answer", err)
	}
	return res.Text, contextText, nil
}

func (s *QAService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Get returns a stored record without touching its ask count.
func (s *QAService) Get(ctx context.Context, id string) (*model.QARecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErr.ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

func toResult(rec *model.QARecord, cached bool) *AskResult {
	return &AskResult{
		ID:       rec.ID,
		Question: rec.Question,
		Answer:   rec.Answer,
		AskCount: rec.AskCount,
		Cached:   cached,
	}
}

func serviceErr(step string, err error) error {
	if errors.Is(err, appErr.ErrService) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return fmt.Errorf("%s: %w: %w", step, appErr.ErrService, err)
}
