package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askbook/internal/ai"
)

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("  "))
	require.Equal(t, 3, EstimateTokens("one two three"))
	require.Equal(t, 4, EstimateTokens("你好 x"))
}

func TestChunkSplitsOnHeadings(t *testing.T) {
	md := "Opening words.\n\n# Chapter One\n\nFirst paragraph.\n\n### Detail\n\nMore text.\n\n## Chapter Two\n\nSecond paragraph.\n"
	sections, err := New().Chunk(context.Background(), md)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	require.Equal(t, "Introduction", sections[0].ID)
	require.Equal(t, "Opening words.", sections[0].Content)
	require.Equal(t, "Chapter One", sections[1].ID)
	require.Equal(t, "First paragraph.\n\nDetail\n\nMore text.", sections[1].Content)
	require.Equal(t, "Chapter Two", sections[2].ID)
	require.Equal(t, EstimateTokens(sections[2].Content), sections[2].TokenCount)
}

func TestChunkSplitsLongSections(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("word ", 6))
	md := "# Long\n\n" + para + "\n\n" + para + "\n\n" + para + "\n"
	sections, err := New(WithMaxTokens(10)).Chunk(context.Background(), md)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	require.Equal(t, "Long", sections[0].ID)
	require.Equal(t, "Long (part 2)", sections[1].ID)
	require.Equal(t, "Long (part 3)", sections[2].ID)
}

func TestChunkDuplicateHeadingsStayUnique(t *testing.T) {
	md := "# Notes\n\nalpha\n\n# Notes\n\nbeta\n"
	sections, err := New().Chunk(context.Background(), md)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "Notes", sections[0].ID)
	require.Equal(t, "Notes #2", sections[1].ID)
}

type stubGenerator struct {
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts ai.CompletionOptions) (*ai.CompletionResult, error) {
	s.calls++
	return &ai.CompletionResult{Text: "A long helper function."}, nil
}

func (s *stubGenerator) ModelName() string { return "stub" }

func TestChunkSummarizesLongCode(t *testing.T) {
	code := strings.Repeat("x := 1\n", 400)
	md := "# Code\n\n```go\n" + code + "```\n"
	gen := &stubGenerator{}
	sections, err := New(WithSummarizer(gen)).Chunk(context.Background(), md)
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Len(t, sections, 1)
	require.Equal(t, "A long helper function.", sections[0].Content)
}
