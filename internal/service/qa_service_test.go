package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/corpus"
	"github.com/xxxsen/askbook/internal/model"
	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

type memQuestionStore struct {
	mu        sync.Mutex
	byID      map[string]*model.QARecord
	createErr error
}

func newMemQuestionStore() *memQuestionStore {
	return &memQuestionStore{byID: map[string]*model.QARecord{}}
}

func (m *memQuestionStore) FindByQuestion(ctx context.Context, question string) (*model.QARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byID {
		if rec.Question == question {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memQuestionStore) GetByID(ctx context.Context, id string) (*model.QARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memQuestionStore) Create(ctx context.Context, rec *model.QARecord) (*model.QARecord, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Question == rec.Question {
			existing.AskCount++
			cp := *existing
			return &cp, nil
		}
	}
	cp := *rec
	m.byID[rec.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memQuestionStore) IncrementAskCount(ctx context.Context, id string, now int64) (*model.QARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	rec.AskCount++
	rec.Mtime = now
	cp := *rec
	return &cp, nil
}

func (m *memQuestionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type staticLoader struct {
	c   *corpus.Corpus
	err error
}

func (l staticLoader) Load(ctx context.Context) (*corpus.Corpus, error) {
	return l.c, l.err
}

type fakeEmbedder struct {
	vector []float32
	err    error
	block  bool
	calls  atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ai.EmbeddingResult{Vector: f.vector}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeGenerator struct {
	text  string
	err   error
	block bool
	calls atomic.Int32

	mu         sync.Mutex
	lastPrompt string
	lastOpts   ai.CompletionOptions
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ai.CompletionOptions) (*ai.CompletionResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastPrompt = prompt
	f.lastOpts = opts
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ai.CompletionResult{Text: f.text}, nil
}

func (f *fakeGenerator) ModelName() string { return "fake-gen" }

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(
		[]model.Section{
			{ID: "A", TokenCount: 300, Content: strings.Repeat("a", 300)},
			{ID: "B", TokenCount: 300, Content: strings.Repeat("b", 300)},
		},
		[]model.Embedding{
			{SectionID: "A", Vector: []float32{1, 0}},
			{SectionID: "B", Vector: []float32{0, 1}},
		},
	)
	require.NoError(t, err)
	return c
}

type fixture struct {
	store *memQuestionStore
	emb   *fakeEmbedder
	gen   *fakeGenerator
	svc   *QAService
}

func newFixture(t *testing.T, cfg QAConfig) *fixture {
	f := &fixture{
		store: newMemQuestionStore(),
		emb:   &fakeEmbedder{vector: []float32{0.9, 0.1}},
		gen:   &fakeGenerator{text: "It is about startups."},
	}
	f.svc = NewQAService(f.store, staticLoader{c: testCorpus(t)}, f.emb, f.gen, cfg)
	return f
}

func TestNormalize(t *testing.T) {
	q, err := Normalize("What is the book about")
	require.NoError(t, err)
	require.Equal(t, "What is the book about?", q)

	for _, raw := range []string{"x", "x?", "  padded  ", "already??", "¿qué?"} {
		once, err := Normalize(raw)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
		require.True(t, strings.HasSuffix(once, "?"))
	}

	_, err = Normalize("   ")
	require.ErrorIs(t, err, appErr.ErrInput)
	_, err = Normalize(strings.Repeat("q", model.MaxQuestionLen+1))
	require.ErrorIs(t, err, appErr.ErrInput)
}

func TestAskFreshQuestion(t *testing.T) {
	f := newFixture(t, QAConfig{Budget: 500, Separator: "\n*"})
	res, err := f.svc.Ask(context.Background(), "What is the book about")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, "What is the book about?", res.Question)
	require.Equal(t, "It is about startups.", res.Answer)
	require.Equal(t, 1, res.AskCount)
	require.NotEmpty(t, res.ID)

	stored, err := f.store.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, "\n*"+strings.Repeat("a", 300)+"\n*"+strings.Repeat("b", 196), stored.Context)

	f.gen.mu.Lock()
	defer f.gen.mu.Unlock()
	require.True(t, strings.HasSuffix(f.gen.lastPrompt, "Q: What is the book about?\nA: "))
	require.Equal(t, 150, f.gen.lastOpts.MaxTokens)
	require.Equal(t, float32(0), f.gen.lastOpts.Temperature)
}

func TestAskCacheHitSkipsInference(t *testing.T) {
	f := newFixture(t, QAConfig{})
	ctx := context.Background()
	first, err := f.svc.Ask(ctx, "What is the book about")
	require.NoError(t, err)
	second, err := f.svc.Ask(ctx, "What is the book about?")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Answer, second.Answer)
	require.Equal(t, 2, second.AskCount)
	require.Equal(t, int32(1), f.emb.calls.Load())
	require.Equal(t, int32(1), f.gen.calls.Load())
}

func TestAskLookupIsCaseSensitive(t *testing.T) {
	f := newFixture(t, QAConfig{})
	ctx := context.Background()
	_, err := f.svc.Ask(ctx, "What is the book about?")
	require.NoError(t, err)
	res, err := f.svc.Ask(ctx, "what is the book about?")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, 2, f.store.count())
}

func TestAskConcurrentIdenticalQuestions(t *testing.T) {
	f := newFixture(t, QAConfig{})
	const k = 16
	var wg sync.WaitGroup
	ids := make([]string, k)
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Ask(context.Background(), "Who wrote it")
			errs[i] = err
			if err == nil {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < k; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	require.Equal(t, 1, f.store.count())
	rec, err := f.store.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	require.Equal(t, k, rec.AskCount)
	require.Equal(t, int32(1), f.emb.calls.Load())
	require.Equal(t, int32(1), f.gen.calls.Load())
}

func TestAskDimensionMismatchSkipsCompletion(t *testing.T) {
	f := newFixture(t, QAConfig{})
	f.emb.vector = make([]float32, 1536)
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	require.Equal(t, int32(0), f.gen.calls.Load())
	require.Equal(t, 0, f.store.count())
}

func TestAskEmbedFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, QAConfig{})
	f.emb.err = errors.New("timeout")
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrService)
	require.Equal(t, int32(0), f.gen.calls.Load())
	require.Equal(t, 0, f.store.count())
}

func TestAskCompletionFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, QAConfig{})
	f.gen.err = ai.ErrUnavailable
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrService)
	require.ErrorIs(t, err, ai.ErrUnavailable)
	require.Equal(t, 0, f.store.count())
}

func TestAskEmbedTimeout(t *testing.T) {
	f := newFixture(t, QAConfig{Timeout: 20 * time.Millisecond})
	f.emb.block = true
	start := time.Now()
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrService)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, int32(0), f.gen.calls.Load())
	require.Equal(t, 0, f.store.count())
}

func TestAskCompletionTimeout(t *testing.T) {
	f := newFixture(t, QAConfig{Timeout: 20 * time.Millisecond})
	f.gen.block = true
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrService)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int32(1), f.gen.calls.Load())
	require.Equal(t, 0, f.store.count())
}

func TestAskCorpusUnavailable(t *testing.T) {
	store := newMemQuestionStore()
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	gen := &fakeGenerator{text: "x"}
	loadErr := errors.New("missing file")
	svc := NewQAService(store, staticLoader{err: errors.Join(appErr.ErrDataUnavailable, loadErr)}, emb, gen, QAConfig{})
	_, err := svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrDataUnavailable)
	require.Equal(t, int32(0), emb.calls.Load())
	require.Equal(t, 0, store.count())
}

func TestAskPersistenceFailureSurfacesValidation(t *testing.T) {
	f := newFixture(t, QAConfig{})
	verr := appErr.NewValidationError()
	verr.Add("question", "has already been taken")
	f.store.createErr = verr
	_, err := f.svc.Ask(context.Background(), "Why")
	require.ErrorIs(t, err, appErr.ErrPersistence)
	got, ok := appErr.AsValidation(err)
	require.True(t, ok)
	require.Equal(t, []string{"has already been taken"}, got.Fields["question"])
}

func TestAskBlankAnswerFailsValidation(t *testing.T) {
	f := newFixture(t, QAConfig{})
	f.gen.text = ""
	_, err := f.svc.Ask(context.Background(), "Why")
	got, ok := appErr.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, got.Fields, "answer")
	require.Equal(t, 0, f.store.count())
}

func TestGet(t *testing.T) {
	f := newFixture(t, QAConfig{})
	ctx := context.Background()
	res, err := f.svc.Ask(ctx, "Why")
	require.NoError(t, err)
	rec, err := f.svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, "Why?", rec.Question)
	require.Equal(t, 1, rec.AskCount)

	_, err = f.svc.Get(ctx, "missing")
	require.True(t, appErr.IsNotFound(err))
}
