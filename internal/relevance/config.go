package relevance

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures the scorer used by content stores.
type Config struct {
	// Provider is "lexical" (default) or "openai".
	Provider string        `yaml:"provider" validate:"oneof=lexical openai"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Retry    RetryConfig   `yaml:"retry"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the lexical scorer with retry defaults for when
// the embedding provider is chosen.
func DefaultConfig() Config {
	return Config{
		Provider: "lexical",
		OpenAI: OpenAIConfig{
			Model: "text-embedding-3-small",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

// New builds the scorer described by cfg.
func New(cfg Config) (Scorer, error) {
	switch cfg.Provider {
	case "", "lexical":
		return LexicalScorer{}, nil
	case "openai":
		s, err := NewEmbeddingScorer(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		var scorer Scorer = s
		if cfg.Timeout > 0 {
			scorer = timeoutScorer{inner: scorer, timeout: cfg.Timeout}
		}
		return WithRetry(scorer, cfg.Retry), nil
	default:
		return nil, fmt.Errorf("unknown relevance provider %q", cfg.Provider)
	}
}

// timeoutScorer bounds each attempt, not the whole retry loop.
type timeoutScorer struct {
	inner   Scorer
	timeout time.Duration
}

func (t timeoutScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Score(ctx, query, texts)
}
