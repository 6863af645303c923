package llm

import (
	"context"
	"fmt"

	"docuchat/internal/config"
)

// NewProvider builds the configured chat backend.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouter)
	case "gemini":
		return NewGemini(ctx, cfg.Gemini)
	case "ollama":
		return NewOllama(cfg.Ollama)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
