package llm

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string // overrides the provider endpoint when set
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryBaseDelay    time.Duration
}

// NewProvider builds the HTTP provider selected by cfg.Provider.
func NewProvider(cfg Config) (*HTTPProvider, error) {
	var pc *ProviderConfig
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic, "claude":
		pc = AnthropicConfig()
	case ProviderOpenAI:
		pc = OpenAIConfig()
	case ProviderOllama:
		pc = OllamaConfig()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	if pc.Name != ProviderOllama && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s provider requires an API key", pc.Name)
	}
	pc.APIKey = cfg.APIKey
	if cfg.Model != "" {
		pc.Model = cfg.Model
	}
	if cfg.BaseURL != "" {
		pc.Endpoint = cfg.BaseURL
	}

	return NewHTTPProvider(pc, HTTPOptions{
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxRetries:        cfg.MaxRetries,
		RetryBaseDelay:    cfg.RetryBaseDelay,
	}), nil
}
