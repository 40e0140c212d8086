package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/corpus"
	"github.com/xxxsen/askbook/internal/filestore"
	"github.com/xxxsen/askbook/internal/repo"
)

func newImportCorpusCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "import-corpus",
		Short: "copy the corpus csv files from the configured store into postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, err := filestore.New(cfg.Corpus.Store)
			if err != nil {
				return fmt.Errorf("init corpus store: %w", err)
			}
			c, err := corpus.NewCSVLoader(store, cfg.Corpus.PagesKey, cfg.Corpus.EmbeddingsKey).Load(ctx)
			if err != nil {
				return err
			}
			sqlDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			corpusRepo := repo.NewCorpusRepo(sqlDB)
			if err := corpusRepo.ReplaceAll(ctx, corpus.ToRows(c)); err != nil {
				return fmt.Errorf("import corpus: %w", err)
			}
			n, err := corpusRepo.Count(ctx)
			if err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("corpus imported", zap.Int("sections", n), zap.Int("dim", c.Dim))
			return nil
		},
	}
}
