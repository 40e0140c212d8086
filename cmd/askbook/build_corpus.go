package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/chunker"
	"github.com/xxxsen/askbook/internal/config"
	"github.com/xxxsen/askbook/internal/corpus"
	"github.com/xxxsen/askbook/internal/model"
)

const documentTaskType = "RETRIEVAL_DOCUMENT"

func newBuildCorpusCmd(load configLoader) *cobra.Command {
	var (
		input         string
		outDir        string
		maxTokens     int
		summarizeCode bool
	)
	cmd := &cobra.Command{
		Use:   "build-corpus",
		Short: "split a markdown book into sections and write the corpus csv files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			return buildCorpus(context.Background(), cfg, input, outDir, maxTokens, summarizeCode)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "markdown file of the book")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the csv files")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", chunker.DefaultMaxTokens, "soft size limit of a section")
	cmd.Flags().BoolVar(&summarizeCode, "summarize-code", false, "replace long code blocks with a generated summary")
	return cmd
}

func buildCorpus(ctx context.Context, cfg *config.Config, input, outDir string, maxTokens int, summarizeCode bool) error {
	logger := logutil.GetLogger(ctx)
	raw, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read book: %w", err)
	}
	generator, embedder, err := ai.Build(cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai: %w", err)
	}
	opts := []chunker.Option{chunker.WithMaxTokens(maxTokens)}
	if summarizeCode {
		opts = append(opts, chunker.WithSummarizer(generator))
	}
	sections, err := chunker.New(opts...).Chunk(ctx, string(raw))
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		return fmt.Errorf("no sections found in %s", input)
	}

	bar := progressbar.Default(int64(len(sections)), "embedding sections")
	embeddings := make([]model.Embedding, 0, len(sections))
	for _, s := range sections {
		res, err := embedder.Embed(ctx, s.Content, documentTaskType)
		if err != nil {
			return fmt.Errorf("embed section %q: %w", s.ID, err)
		}
		embeddings = append(embeddings, model.Embedding{SectionID: s.ID, Vector: res.Vector})
		_ = bar.Add(1)
	}
	// Reject output the corpus loader would refuse.
	if _, err := corpus.New(sections, embeddings); err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, cfg.Corpus.PagesKey), func(f *os.File) error {
		return corpus.WritePages(f, sections)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, cfg.Corpus.EmbeddingsKey), func(f *os.File) error {
		return corpus.WriteEmbeddings(f, embeddings)
	}); err != nil {
		return err
	}
	logger.Info("corpus written",
		zap.Int("sections", len(sections)),
		zap.Int("dim", embeddings[0].Dim()),
		zap.String("out", outDir),
	)
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
