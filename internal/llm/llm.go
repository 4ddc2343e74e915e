// Package llm abstracts the language-model backends behind a small client
// interface: prompt in, text out. The model call itself is a black box.
package llm

import (
	"context"
	"log/slog"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/config"
)

// Request is one completion request.
type Request struct {
	System string
	Prompt string
}

// Client produces a completion for a request.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// FromSettings builds the configured client, or nil when no engine is usable.
// Agents treat a nil client as "no LLM" and fall back to built-in content.
func FromSettings(cfg *config.Settings) Client {
	switch cfg.LLMEngine {
	case config.EngineOpenAI:
		if cfg.APIKey == "" {
			slog.Warn("OPENAI_API_KEY not set, agents will use fallback content")
			return nil
		}
		return &OpenAI{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		}
	case config.EngineCommand:
		if cfg.LLMCommand == "" {
			return nil
		}
		return &Command{
			Command:     cfg.LLMCommand,
			Args:        cfg.LLMCommandArgs,
			Timeout:     cfg.LLMTimeout,
			SandboxHome: cfg.Home,
		}
	default:
		return nil
	}
}

// Tune returns a copy of the client with per-agent settings applied. Zero
// values keep the engine defaults; engines without tunable settings come
// back unchanged, as does a nil client.
func Tune(c Client, model string, maxTokens int, temperature float64) Client {
	oc, ok := c.(*OpenAI)
	if !ok || oc == nil {
		return c
	}
	tuned := *oc
	if model != "" {
		tuned.Model = model
	}
	if maxTokens > 0 {
		tuned.MaxTokens = maxTokens
	}
	if temperature > 0 {
		tuned.Temperature = temperature
	}
	return &tuned
}
