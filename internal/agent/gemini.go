package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("gemini api key is not set")

// NewGeminiModel connects to the Gemini Developer API
func NewGeminiModel(ctx context.Context, apiKey string) (Model, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client.Models, nil
}
