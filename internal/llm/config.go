package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config selects and configures one provider.
type Config struct {
	Provider string

	Anthropic Credentials
	OpenAI    Credentials
	Gemini    Credentials

	// Timeout bounds a single Generate call. Zero disables it.
	Timeout time.Duration
}

type Credentials struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint. Only OpenAI honours it, which
	// covers OpenAI-compatible gateways.
	BaseURL string
}

func DefaultConfig() Config {
	return Config{
		Provider:  ProviderAnthropic,
		Anthropic: Credentials{Model: "claude-haiku"},
		OpenAI:    Credentials{Model: "gpt-4o-mini"},
		Gemini:    Credentials{Model: "gemini-flash"},
		Timeout:   20 * time.Second,
	}
}

// ConfigFromEnv overlays QUIZDECK_* variables onto DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if p := os.Getenv("QUIZDECK_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}
	for _, c := range []struct {
		prefix string
		creds  *Credentials
	}{
		{"QUIZDECK_ANTHROPIC", &cfg.Anthropic},
		{"QUIZDECK_OPENAI", &cfg.OpenAI},
		{"QUIZDECK_GEMINI", &cfg.Gemini},
	} {
		if k := os.Getenv(c.prefix + "_API_KEY"); k != "" {
			c.creds.APIKey = k
		}
		if m := os.Getenv(c.prefix + "_MODEL"); m != "" {
			c.creds.Model = m
		}
	}
	if u := os.Getenv("QUIZDECK_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}
	if t := os.Getenv("QUIZDECK_LLM_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("QUIZDECK_LLM_TIMEOUT: invalid duration %q", t)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// DiscoverConfig falls back to the vendors' standard key variables and picks
// the first one set. It reports false when none is.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		return Config{}, false
	}
	return cfg, true
}

// Resolve returns the environment configuration when it names a usable
// provider, otherwise a discovered one.
func Resolve() (Config, bool, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return Config{}, false, err
	}
	if cfg.Validate() == nil {
		return cfg, true, nil
	}
	if d, ok := DiscoverConfig(); ok {
		d.Timeout = cfg.Timeout
		return d, true, nil
	}
	return Config{}, false, nil
}

// Validate checks that the selected provider has an API key.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderMock:
		return nil
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s provider: QUIZDECK_%s_API_KEY is not set", c.Provider, strings.ToUpper(c.Provider))
	}
	return nil
}
