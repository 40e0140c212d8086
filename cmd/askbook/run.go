package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/handler"
	"github.com/xxxsen/askbook/internal/job"
	"github.com/xxxsen/askbook/internal/middleware"
	"github.com/xxxsen/askbook/internal/schedule"
)

func newRunCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(ctx, a)
		},
	}
}

func buildScheduler(a *app) (*schedule.CronScheduler, error) {
	scheduler := schedule.NewCronScheduler()
	if spec := a.cfg.Jobs.EmbeddingCacheCleanup; spec != "" && a.cfg.EmbedCache.DB {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.cacheRepo, a.cfg.Jobs.EmbeddingCacheMaxAgeDays), spec); err != nil {
			return nil, err
		}
	}
	if spec := a.cfg.Jobs.CorpusRefresh; spec != "" && a.cached != nil {
		if err := scheduler.AddJob(job.NewCorpusRefreshJob(a.cached), spec); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := logutil.GetLogger(ctx)
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("corpus_source", cfg.Corpus.Source),
	)

	if a.cached != nil {
		// Fail at startup rather than on the first question.
		if _, err := a.cached.Load(ctx); err != nil {
			return fmt.Errorf("load corpus: %w", err)
		}
	}

	scheduler, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Questions:         handler.NewQuestionHandler(a.questions),
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
