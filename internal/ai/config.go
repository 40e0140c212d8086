package ai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/askbook/internal/config"
)

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}

// Build creates the configured providers and returns the generator and
// embedder chains, each wrapped with retry.
func Build(cfg config.AIConfig) (IGenerator, IEmbedder, error) {
	providers := make(map[string]IProvider, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc.Type, pc.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %s: %w", pc.Name, err)
		}
		providers[pc.Name] = p
	}
	genEntries := make([]GeneratorEntry, 0, len(cfg.Generator))
	for _, ref := range cfg.Generator {
		p, ok := providers[ref.Provider]
		if !ok {
			return nil, nil, fmt.Errorf("generator refers to unknown provider %q", ref.Provider)
		}
		genEntries = append(genEntries, GeneratorEntry{Name: ref.Provider + "/" + ref.Model, Generator: NewGenerator(p, ref.Model)})
	}
	embEntries := make([]EmbedderEntry, 0, len(cfg.Embedder))
	for _, ref := range cfg.Embedder {
		p, ok := providers[ref.Provider]
		if !ok {
			return nil, nil, fmt.Errorf("embedder refers to unknown provider %q", ref.Provider)
		}
		embEntries = append(embEntries, EmbedderEntry{Name: ref.Provider + "/" + ref.Model, Embedder: NewEmbedder(p, ref.Model)})
	}
	gen := NewGroupGenerator(genEntries)
	emb := NewGroupEmbedder(embEntries)
	if gen == nil || emb == nil {
		return nil, nil, ErrUnavailable
	}
	delay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
	return WithGeneratorRetry(gen, cfg.MaxRetries, delay), WithEmbedderRetry(emb, cfg.MaxRetries, delay), nil
}
