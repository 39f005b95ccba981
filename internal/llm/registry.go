package llm

import (
	"fmt"
	"strings"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// New builds the client for cfg.Provider. An empty provider means Anthropic.
func New(cfg Config, apiKey string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderAnthropic:
		c, err := NewAnthropicClient(cfg, apiKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAIClient(cfg, apiKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// APIKeyEnv returns the environment variable consulted for a provider's key.
func APIKeyEnv(provider string) string {
	if strings.EqualFold(strings.TrimSpace(provider), ProviderOpenAI) {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}
