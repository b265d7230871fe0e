// Package gemini implements llm.Client using the Gemini Developer API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/jxucoder/PatchPilot/llm"
)

// Client implements llm.Client for a single Gemini model.
type Client struct {
	model  string
	client *genai.Client
}

// New creates a Gemini Developer API client.
// Model defaults to "gemini-2.0-flash" if empty.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{model: model, client: client}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:     float32Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}

func float32Ptr(f float32) *float32 {
	return &f
}
