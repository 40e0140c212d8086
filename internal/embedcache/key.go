// Package embedcache decorates an embedder with in-memory and persistent
// caches keyed by model, task type and content hash.
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/askbook/internal/ai"
)

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}

func servedBy(res *ai.EmbeddingResult, next ai.IEmbedder) string {
	if res.Model != "" {
		return res.Model
	}
	return next.ModelName()
}
