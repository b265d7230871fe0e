package main

import (
	"strings"
	"testing"
)

func TestRunCommandDefaults(t *testing.T) {
	if got := runCmd.Flags().Lookup("bug-description").DefValue; got != defaultBugDescription {
		t.Errorf("bug-description default = %q; want the canned demo description", got)
	}
	if got := runCmd.Flags().Lookup("project-dir").DefValue; got != "test-app" {
		t.Errorf("project-dir default = %q; want test-app", got)
	}
	if got := runCmd.Flags().Lookup("instance-id").DefValue; got != "" {
		t.Errorf("instance-id default = %q; want empty", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("short"); got != "*****" {
		t.Errorf("maskSecret(short) = %q; want all stars", got)
	}
	got := maskSecret("AIzaSyB1234567890abcdef")
	if !strings.HasPrefix(got, "AIza") || !strings.HasSuffix(got, "cdef") {
		t.Errorf("maskSecret long = %q; want first and last 4 visible", got)
	}
	if strings.Contains(got, "1234567890") {
		t.Errorf("maskSecret long = %q; middle should be masked", got)
	}
}

func TestIsValidModelFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "gemini model", input: "gemini/gemini-2.0-flash", want: true},
		{name: "vertex model", input: "vertex_ai/claude-3-7-sonnet@20250219", want: true},
		{name: "bedrock model", input: "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0", want: true},
		{name: "anthropic model", input: "anthropic/claude-sonnet-4-20250514", want: true},
		{name: "unknown provider", input: "openai/gpt-4o", want: false},
		{name: "no slash", input: "gemini", want: false},
		{name: "empty model part", input: "gemini/", want: false},
		{name: "empty string", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isValidModelFormat(tt.input)
			if got != tt.want {
				t.Errorf("isValidModelFormat(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short", 10); got != "short" {
		t.Errorf("shorten(short, 10) = %q; want unchanged", got)
	}
	long := strings.Repeat("x", 80)
	got := shorten(long, 60)
	if len([]rune(got)) != 60 {
		t.Errorf("shorten result has %d runes; want 60", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("shorten result %q should end with ...", got)
	}
}
