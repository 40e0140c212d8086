package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

var ErrUnavailable = appErr.ErrAIDisabled

// CompletionOptions are the decoding parameters sent with a completion call.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// CompletionResult is the first candidate returned by the model.
type CompletionResult struct {
	Text         string
	Model        string
	FinishReason string
}

// EmbeddingResult carries the vector and the model that produced it.
// Fallback is set when a group served the call from a non-primary entry.
type EmbeddingResult struct {
	Vector   []float32
	Model    string
	Fallback bool
}

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, opts CompletionOptions) (*CompletionResult, error)
	Embed(ctx context.Context, model string, text string, taskType string) (*EmbeddingResult, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string, opts CompletionOptions) (*CompletionResult, error)
	ModelName() string
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) (*EmbeddingResult, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string, opts CompletionOptions) (*CompletionResult, error) {
	res, err := g.provider.Generate(ctx, g.model, prompt, opts)
	if err != nil {
		return nil, err
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("%s returned an empty completion", g.provider.Name())
	}
	return res, nil
}

func (g *generator) ModelName() string {
	return g.model
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) (*EmbeddingResult, error) {
	res, err := e.provider.Embed(ctx, e.model, text, taskType)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Vector) == 0 {
		return nil, fmt.Errorf("%s returned no embedding values", e.provider.Name())
	}
	return res, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

// permanentError marks failures that retrying cannot fix, such as a rejected
// api key or an unknown model.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
