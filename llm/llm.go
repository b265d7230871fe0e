// Package llm defines the LLM client interface for PatchPilot.
package llm

import (
	"context"
	"strings"
)

// Request is a single completion call. The pipeline fills both sampling
// knobs on every call.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is a minimal interface for making LLM API calls.
// Implementations provide the actual transport to a specific provider.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// SplitModel breaks a litellm-style model string such as
// "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0" into its provider
// prefix and the provider-specific model name.
func SplitModel(s string) (provider, model string) {
	before, after, ok := strings.Cut(s, "/")
	if !ok {
		return "", s
	}
	return before, after
}
