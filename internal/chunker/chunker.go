// Package chunker splits a markdown book into titled sections suitable for
// the corpus files.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/model"
)

const (
	DefaultMaxTokens     = 400
	defaultSummaryTokens = 300
	untitled             = "Introduction"
)

type Option func(*Chunker)

// WithMaxTokens sets the soft upper bound of a section.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithSummarizer replaces code blocks longer than the summary threshold with
// a short generated description.
func WithSummarizer(gen ai.IGenerator) Option {
	return func(c *Chunker) {
		c.gen = gen
	}
}

type Chunker struct {
	gen       ai.IGenerator
	maxTokens int
}

func New(opts ...Option) *Chunker {
	c := &Chunker{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk returns sections in document order. Level 1 and 2 headings start a
// new section; oversized sections are split and numbered so every title is
// unique.
func (c *Chunker) Chunk(ctx context.Context, markdown string) ([]model.Section, error) {
	logger := logutil.GetLogger(ctx)
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)
	src := reader.Source()

	var (
		sections      []model.Section
		current       []string
		currentTokens int
		heading       = untitled
		part          = 0
		seen          = map[string]int{}
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		part++
		title := heading
		if part > 1 {
			title = fmt.Sprintf("%s (part %d)", heading, part)
		}
		if n := seen[title]; n > 0 {
			title = fmt.Sprintf("%s #%d", title, n+1)
		}
		seen[title]++
		content := strings.Join(current, "\n\n")
		sections = append(sections, model.Section{
			ID:         title,
			TokenCount: EstimateTokens(content),
			Content:    content,
		})
		logger.Debug("flushing section", zap.String("title", title), zap.Int("tokens", currentTokens))
		current = nil
		currentTokens = 0
	}

	add := func(txt string) {
		tokens := EstimateTokens(txt)
		if currentTokens > 0 && currentTokens+tokens > c.maxTokens {
			flush()
		}
		current = append(current, txt)
		currentTokens += tokens
	}

	logger.Info("starting markdown chunking", zap.Int("size", len(markdown)))

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			txt := strings.TrimSpace(string(n.Text(src)))
			if n.Level <= 2 {
				flush()
				if txt == "" {
					txt = untitled
				}
				heading = txt
				part = 0
				continue
			}
			add(txt)
		case *ast.FencedCodeBlock:
			var sb strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(src))
			}
			code := sb.String()
			if EstimateTokens(code) > defaultSummaryTokens && c.gen != nil {
				summary, err := c.summarizeCode(ctx, code)
				if err == nil {
					add(summary)
					continue
				}
				logger.Warn("failed to summarize code block, keeping original code", zap.Error(err))
			}
			add(strings.TrimSpace(code))
		default:
			txt := extractText(n, src)
			if txt == "" {
				continue
			}
			add(txt)
		}
	}
	flush()
	logger.Info("chunking completed", zap.Int("total_sections", len(sections)))
	return sections, nil
}

func (c *Chunker) summarizeCode(ctx context.Context, code string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following code block in 1-2 sentences. Focus on its purpose and key logic.\n\nCODE:\n%s", code)
	res, err := c.gen.Generate(ctx, prompt, ai.CompletionOptions{MaxTokens: 120})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// EstimateTokens counts whitespace separated words plus one token per
// non-ascii rune. Non-empty text is at least one token.
func EstimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
