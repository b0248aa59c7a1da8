package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/quizdeck/internal/store"
)

// NewProvider builds the configured provider. Every call is bounded by
// cfg.Timeout and, when events is non-nil, recorded through it.
func NewProvider(ctx context.Context, cfg Config, events store.LLMEventLogger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		p = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}

	if cfg.Timeout > 0 {
		p = WithTimeout(p, cfg.Timeout)
	}
	if events != nil {
		p = WithLogging(p, events)
	}
	return p, nil
}
