package llm

import (
	"fmt"
	"strings"
)

// NewClient creates an LLM client for the configured provider. The client
// is wrapped with the configured rate limit and retries transient failures.
func NewClient(cfg Config) (Client, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		client, err = newAnthropicClient(cfg)
	case "openai":
		client, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return newRetryClient(newLimitedClient(client, cfg.RateLimit)), nil
}
