// Package pipeline implements the staged bug-fixing flow: locate
// suspect files, narrow them to code elements and edit locations,
// generate candidate repairs, and validate them into a consolidated
// patch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jxucoder/PatchPilot/internal/logging"
	"github.com/jxucoder/PatchPilot/llm"
	"github.com/jxucoder/PatchPilot/repo"
)

// ErrHalt signals that a stage legitimately found nothing further to
// work with. Run treats it as a clean stop rather than a failure.
var ErrHalt = errors.New("pipeline halted")

// Context carries data through pipeline stages.
type Context struct {
	Ctx            context.Context
	BugDescription string
	ProjectDir     string

	SuspectFiles  []string
	CodeElements  map[string][]repo.Element
	EditLocations map[string][]Location
	Fixes         []Fix
	TestCode      string
	Patch         string
}

// Location is one suspect region inside a file: a named element or an
// explicit line range, with the source content backing it.
type Location struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Start   int    `json:"start,omitempty"`
	End     int    `json:"end,omitempty"`
	Content string `json:"content"`
}

// Fix is one candidate repair produced by the model. Edit holds the
// raw SEARCH/REPLACE command text; Score is set during validation.
type Fix struct {
	File     string   `json:"file"`
	Location Location `json:"location"`
	Edit     string   `json:"fix"`
	Score    int      `json:"score"`
}

// Stage is a single step in a pipeline.
type Stage interface {
	Name() string
	Execute(ctx *Context) error
}

// Pipeline executes a sequence of stages.
type Pipeline interface {
	Run(ctx *Context) error
}

// DefaultPipeline runs stages sequentially.
type DefaultPipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline from the given stages.
func NewPipeline(stages ...Stage) *DefaultPipeline {
	return &DefaultPipeline{stages: stages}
}

// Run executes all stages in order. A stage returning ErrHalt stops
// the pipeline cleanly; any other error is wrapped with the stage name.
func (p *DefaultPipeline) Run(ctx *Context) error {
	for _, s := range p.stages {
		if err := s.Execute(ctx); err != nil {
			if errors.Is(err, ErrHalt) {
				return nil
			}
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Options carries the tunables shared by the built-in stages.
type Options struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	TopFiles      int
	ContextWindow int
	MaxSamples    int
	Extensions    []string
}

// complete sends one prompt to the model and logs the exchange.
func complete(ctx context.Context, client llm.Client, opts Options, stage, prompt string, temperature float64) (string, error) {
	logging.LLMRequest(stage, opts.Model, temperature, opts.MaxTokens, prompt)
	response, err := client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	logging.LLMResponse(stage, response)
	return response, nil
}

// fencedCode returns the contents of the first ``` fence in response,
// dropping a language tag on the opening fence. ok is false when the
// response carries no fence at all.
func fencedCode(response string) (string, bool) {
	parts := strings.Split(response, "```")
	if len(parts) < 2 {
		return "", false
	}
	block := parts[1]
	if nl := strings.Index(block, "\n"); nl >= 0 {
		if tag := strings.TrimSpace(block[:nl]); tag != "" && !strings.Contains(tag, " ") {
			block = block[nl+1:]
		}
	}
	return strings.TrimSpace(block), true
}

// listFromResponse parses a fenced newline-separated list, falling
// back to every non-empty line when no fence is present.
func listFromResponse(response string) []string {
	block, ok := fencedCode(response)
	if !ok {
		block = response
	}
	var items []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		items = append(items, line)
	}
	return items
}
