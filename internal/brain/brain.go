// Package brain adapts the generation backends behind one Provider interface.
package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config for creating a Provider.
type Config struct {
	// Gemini
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Claude
	ClaudeAPIKey string
	ClaudeModel  string

	// OpenAI or a compatible server
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Which provider to force ("gemini", "claude", "openai", or "" for auto-detect)
	Provider string

	Params  Params
	Timeout time.Duration
}

// New auto-detects or forces the provider. It returns ErrNoProvider when no
// API key is configured.
func New(ctx context.Context, cfg Config) (Provider, error) {
	pick := strings.ToLower(strings.TrimSpace(cfg.Provider))

	// Auto-detect if not forced
	if pick == "" {
		switch {
		case cfg.GeminiAPIKey != "":
			pick = "gemini"
		case cfg.ClaudeAPIKey != "":
			pick = "claude"
		case cfg.OpenAIAPIKey != "":
			pick = "openai"
		default:
			return nil, ErrNoProvider
		}
	}

	switch pick {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: provider gemini needs GEMINI_API_KEY", ErrNoProvider)
		}
		slog.Info("brain: using gemini", "model", cfg.GeminiModel)
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.Params, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return p, nil
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("%w: provider claude needs ANTHROPIC_API_KEY", ErrNoProvider)
		}
		slog.Info("brain: using claude", "model", cfg.ClaudeModel)
		return newClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.Params, cfg.Timeout), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("%w: provider openai needs OPENAI_API_KEY", ErrNoProvider)
		}
		slog.Info("brain: using openai", "model", cfg.OpenAIModel, "base_url", cfg.OpenAIBaseURL)
		return newOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Params, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
