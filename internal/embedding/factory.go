package embedding

import (
	"fmt"

	"docuchat/internal/config"
)

// NewEmbedder builds the configured embedding backend.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "huggingface":
		return NewHuggingFace(cfg.HuggingFace, cfg.Dimension)
	case "openai":
		return NewOpenAI(cfg.OpenAI, cfg.Dimension)
	case "ollama":
		return NewOllama(cfg.Ollama, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
