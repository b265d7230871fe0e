// Package logging configures the process-wide zerolog logger and carries
// the pipeline's step and LLM trace helpers.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup routes the global logger through a console writer on stderr.
// Stdout stays clean so a printed patch can be piped. Debug enables full
// prompt and response traces.
func Setup(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = log.Output(cw)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// StepStart marks the beginning of a pipeline step.
func StepStart(name string) {
	log.Info().Msgf("▶ Starting: %s", name)
}

// StepEnd marks a completed step with an optional result note.
func StepEnd(name, result string) {
	log.Info().Msgf("✓ Completed: %s", name)
	if result != "" {
		log.Info().Msgf("  Result: %s", result)
	}
}

// LLMRequest traces an outgoing completion call. The prompt body only
// appears at debug level.
func LLMRequest(stage, model string, temperature float64, maxTokens int, prompt string) {
	log.Info().
		Str("stage", stage).
		Str("model", model).
		Float64("temperature", temperature).
		Int("max_tokens", maxTokens).
		Msg("llm request")
	log.Debug().Msg(prompt)
}

// LLMResponse traces a completion response. The body only appears at
// debug level.
func LLMResponse(stage, response string) {
	log.Info().Str("stage", stage).Int("chars", len(response)).Msg("llm response")
	log.Debug().Msg(response)
}
