package ai

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/pkg/retry"
)

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		IsPermanent(err):
		return false
	}
	return true
}

type retryGenerator struct {
	next       IGenerator
	maxRetries int
	delay      time.Duration
}

func WithGeneratorRetry(g IGenerator, maxRetries int, delay time.Duration) IGenerator {
	if g == nil || maxRetries <= 0 {
		return g
	}
	return &retryGenerator{next: g, maxRetries: maxRetries, delay: delay}
}

func (r *retryGenerator) Generate(ctx context.Context, prompt string, opts CompletionOptions) (*CompletionResult, error) {
	var res *CompletionResult
	attempt := 0
	err := retry.Do(ctx, r.maxRetries, r.delay, retryable, func(ctx context.Context) error {
		attempt++
		var err error
		res, err = r.next.Generate(ctx, prompt, opts)
		if err != nil && attempt <= r.maxRetries {
			logutil.GetLogger(ctx).Warn("completion attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *retryGenerator) ModelName() string {
	return r.next.ModelName()
}

type retryEmbedder struct {
	next       IEmbedder
	maxRetries int
	delay      time.Duration
}

func WithEmbedderRetry(e IEmbedder, maxRetries int, delay time.Duration) IEmbedder {
	if e == nil || maxRetries <= 0 {
		return e
	}
	return &retryEmbedder{next: e, maxRetries: maxRetries, delay: delay}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) (*EmbeddingResult, error) {
	var res *EmbeddingResult
	attempt := 0
	err := retry.Do(ctx, r.maxRetries, r.delay, retryable, func(ctx context.Context) error {
		attempt++
		var err error
		res, err = r.next.Embed(ctx, text, taskType)
		if err != nil && attempt <= r.maxRetries {
			logutil.GetLogger(ctx).Warn("embedding attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}
