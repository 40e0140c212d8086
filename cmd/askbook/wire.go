package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/config"
	"github.com/xxxsen/askbook/internal/corpus"
	"github.com/xxxsen/askbook/internal/db"
	"github.com/xxxsen/askbook/internal/embedcache"
	"github.com/xxxsen/askbook/internal/filestore"
	"github.com/xxxsen/askbook/internal/repo"
	"github.com/xxxsen/askbook/internal/service"
)

type configLoader func() (*config.Config, error)

type app struct {
	cfg       *config.Config
	db        *sql.DB
	cacheRepo *repo.EmbeddingCacheRepo
	corpus    corpus.Loader
	cached    *corpus.CachedLoader
	questions *service.QAService
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return sqlDB, nil
}

func buildCorpusLoader(cfg config.CorpusConfig, sqlDB *sql.DB) (corpus.Loader, error) {
	switch cfg.Source {
	case "db":
		return corpus.NewDBLoader(repo.NewCorpusRepo(sqlDB)), nil
	default:
		store, err := filestore.New(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("init corpus store: %w", err)
		}
		return corpus.NewCSVLoader(store, cfg.PagesKey, cfg.EmbeddingsKey), nil
	}
}

// buildEmbedder layers the lru cache over the db cache over the providers.
func buildEmbedder(cfg *config.Config, base ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	e := base
	if cfg.EmbedCache.DB && cacheRepo != nil {
		e = embedcache.WrapDBCacheToEmbedder(e, cacheRepo)
	}
	return embedcache.WrapLruCacheToEmbedder(e, cfg.EmbedCache.LRUSize, time.Duration(cfg.EmbedCache.LRUTTLSeconds)*time.Second)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	sqlDB, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: sqlDB, cacheRepo: repo.NewEmbeddingCacheRepo(sqlDB)}

	loader, err := buildCorpusLoader(cfg.Corpus, sqlDB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.corpus = loader
	if cfg.Corpus.Cache {
		a.cached = corpus.NewCachedLoader(loader)
		a.corpus = a.cached
	}

	generator, embedder, err := ai.Build(cfg.AI)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init ai: %w", err)
	}
	embedder = buildEmbedder(cfg, embedder, a.cacheRepo)

	a.questions = service.NewQAService(repo.NewQuestionRepo(sqlDB), a.corpus, embedder, generator, service.QAConfig{
		Budget:      cfg.Answer.MaxContextTokens,
		Separator:   cfg.Answer.Separator,
		MaxTokens:   cfg.Answer.MaxTokens,
		Temperature: cfg.Answer.Temperature,
		Preamble:    cfg.Answer.Preamble,
		Timeout:     time.Duration(cfg.AI.Timeout) * time.Second,
	})
	logutil.GetLogger(ctx).Info("app ready",
		zap.String("corpus_source", cfg.Corpus.Source),
		zap.String("generator", generator.ModelName()),
		zap.String("embedder", embedder.ModelName()),
	)
	return a, nil
}
