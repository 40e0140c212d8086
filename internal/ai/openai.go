package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openAIConfig struct {
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
	Organization string `json:"organization"`
}

type openAIProvider struct {
	client *openai.Client
	hasKey bool
}

func (p *openAIProvider) Name() string {
	return "openai"
}

// isCompletionModel reports whether model is served by the legacy
// completions endpoint rather than chat completions.
func isCompletionModel(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "instruct") ||
		strings.HasPrefix(m, "davinci") ||
		strings.HasPrefix(m, "babbage")
}

// openAITemperature keeps a zero temperature on the wire. The request
// structs drop a zero value through omitempty, which makes the api fall back
// to its default of 1.
func openAITemperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string, opts CompletionOptions) (*CompletionResult, error) {
	if !p.hasKey {
		return nil, ErrUnavailable
	}
	if isCompletionModel(model) {
		resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       model,
			Prompt:      prompt,
			MaxTokens:   opts.MaxTokens,
			Temperature: openAITemperature(opts.Temperature),
		})
		if err != nil {
			return nil, classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("openai response has no choices")
		}
		return &CompletionResult{
			Text:         strings.TrimSpace(resp.Choices[0].Text),
			Model:        resp.Model,
			FinishReason: resp.Choices[0].FinishReason,
		}, nil
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: openAITemperature(opts.Temperature),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}
	return &CompletionResult{
		Text:         strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) (*EmbeddingResult, error) {
	if !p.hasKey {
		return nil, ErrUnavailable
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return &EmbeddingResult{Vector: resp.Data[0].Embedding, Model: model}, nil
}

// classifyOpenAIError marks client errors other than rate limiting as
// permanent.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return Permanent(fmt.Errorf("openai request failed: %w", err))
	}
	return fmt.Errorf("openai request failed: %w", err)
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	clientCfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if org := strings.TrimSpace(cfg.Organization); org != "" {
		clientCfg.OrgID = org
	}
	return &openAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		hasKey: key != "",
	}, nil
}

func init() {
	Register("openai", createOpenAIFactory)
}
