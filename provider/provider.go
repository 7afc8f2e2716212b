package provider

import (
	"context"
	"errors"
	"time"

	gemini_provider "github.com/customercompass/compass/provider/gemini"
	openai_provider "github.com/customercompass/compass/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// Provider is the interface all generative model implementations satisfy.
// The caller owns prompt construction; Complete returns raw model text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider creates a new LLM client for the given provider name.
func NewProvider(client Client, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("api key not set")
	}
	switch client {
	case OpenAI:
		return openai_provider.NewClient(apiKey, model, temperature, maxTokens, timeout), nil
	case Gemini:
		return gemini_provider.NewClient(apiKey, model, temperature, maxTokens, timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
