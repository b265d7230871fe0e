package llm

import "testing"

func TestSplitModel(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		model    string
	}{
		{"vertex_ai/claude-3-7-sonnet@20250219", "vertex_ai", "claude-3-7-sonnet@20250219"},
		{"bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0", "bedrock", "anthropic.claude-3-5-sonnet-20241022-v2:0"},
		{"azure/gpt-4o", "azure", "gpt-4o"},
		{"gemini/gemini-2.0-flash", "gemini", "gemini-2.0-flash"},
		{"anthropic/claude-sonnet-4-20250514", "anthropic", "claude-sonnet-4-20250514"},
		{"plainmodel", "", "plainmodel"},
	}
	for _, tt := range tests {
		provider, model := SplitModel(tt.in)
		if provider != tt.provider || model != tt.model {
			t.Errorf("SplitModel(%q) = (%q, %q), want (%q, %q)",
				tt.in, provider, model, tt.provider, tt.model)
		}
	}
}
