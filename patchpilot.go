// Package patchpilot is the top-level entry point for the PatchPilot
// bug-fixing assistant.
//
// Use the Builder to compose a PatchPilot application:
//
//	app, err := patchpilot.NewBuilder().Build()
//	patch, err := app.FindPatch(ctx, "cart totals come out wrong", "./shop", "")
//
// Or customize components:
//
//	app, err := patchpilot.NewBuilder().
//	    WithConfig(cfg).
//	    WithLLM(client).
//	    Build()
package patchpilot

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/artifacts"
	"github.com/jxucoder/PatchPilot/internal/config"
	"github.com/jxucoder/PatchPilot/internal/runner"
	"github.com/jxucoder/PatchPilot/internal/runstore"
	"github.com/jxucoder/PatchPilot/internal/server"
	"github.com/jxucoder/PatchPilot/llm"
	"github.com/jxucoder/PatchPilot/llm/anthropic"
	"github.com/jxucoder/PatchPilot/llm/azure"
	"github.com/jxucoder/PatchPilot/llm/bedrock"
	"github.com/jxucoder/PatchPilot/llm/gemini"
	"github.com/jxucoder/PatchPilot/llm/vertex"
	"github.com/jxucoder/PatchPilot/pipeline"
)

// Builder constructs a PatchPilot App.
type Builder struct {
	config *config.Config
	client llm.Client
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.config = cfg
	return b
}

// WithLLM sets the model client used by all pipeline stages.
func (b *Builder) WithLLM(client llm.Client) *Builder {
	b.client = client
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}
	return &App{config: b.config, client: b.client}, nil
}

// applyDefaults fills in missing builder components.
func applyDefaults(b *Builder) error {
	if b.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		b.config = cfg
	}
	if b.client == nil {
		client, err := clientForModel(context.Background(), b.config)
		if err != nil {
			return err
		}
		b.client = client
	}
	return nil
}

// clientForModel routes a litellm-style model string to the matching
// provider client.
func clientForModel(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	provider, model := llm.SplitModel(cfg.Model)
	switch provider {
	case "bedrock":
		return bedrock.New(ctx, cfg.AWSRegion, model)
	case "azure":
		return azure.New(cfg.AzureEndpoint, cfg.AzureAPIKey, model, cfg.AzureAPIVersion), nil
	case "vertex_ai":
		return vertex.New(ctx, cfg.VertexKeyPath, cfg.VertexLocation, model)
	case "gemini":
		return gemini.New(ctx, cfg.GeminiAPIKey, model)
	case "anthropic":
		return anthropic.New(cfg.AnthropicAPIKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q in model %q (supported: bedrock, azure, vertex_ai, gemini, anthropic)", provider, cfg.Model)
	}
}

// App is a configured PatchPilot application.
type App struct {
	config *config.Config
	client llm.Client
}

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.config }

// Stages builds the pipeline stages for one run, with artifact storage
// under the results directory keyed by instanceID.
func (a *App) Stages(instanceID string) ([]pipeline.Stage, error) {
	store, err := artifacts.NewStore(filepath.Join(a.config.ResultsDir, instanceID))
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		Model:         a.config.Model,
		Temperature:   a.config.Temperature,
		MaxTokens:     a.config.MaxTokens,
		TopFiles:      a.config.TopFiles,
		ContextWindow: a.config.ContextWindow,
		MaxSamples:    a.config.MaxSamples,
		Extensions:    a.config.Extensions,
	}

	stages := []pipeline.Stage{
		pipeline.NewLocateFilesStage(a.client, store, opts),
	}
	if a.config.PruneFolders {
		stages = append(stages, pipeline.NewPruneFoldersStage(a.client, store, opts))
	}
	stages = append(stages,
		pipeline.NewLocateElementsStage(a.client, store, opts),
		pipeline.NewLocateLinesStage(a.client, store, opts),
		pipeline.NewRepairStage(a.client, store, opts),
		pipeline.NewGenerateTestsStage(a.client, store, opts),
		pipeline.NewValidateStage(store),
	)
	return stages, nil
}

// FindPatch runs the full pipeline against projectDir and returns the
// consolidated patch. An empty patch with a nil error means no fix
// could be validated. instanceID keys the artifact directory; when
// empty, a timestamp is used.
func (a *App) FindPatch(ctx context.Context, bugDescription, projectDir, instanceID string) (string, error) {
	if instanceID == "" {
		instanceID = time.Now().Format("20060102_150405")
	}

	stages, err := a.Stages(instanceID)
	if err != nil {
		return "", err
	}

	pctx := &pipeline.Context{
		Ctx:            ctx,
		BugDescription: bugDescription,
		ProjectDir:     projectDir,
	}
	if err := pipeline.NewPipeline(stages...).Run(pctx); err != nil {
		return "", err
	}
	log.Info().Msgf("Results saved in: %s", filepath.Join(a.config.ResultsDir, instanceID))
	return pctx.Patch, nil
}

// OpenStore opens the run store backing the HTTP API and the runs
// subcommands.
func (a *App) OpenStore() (*runstore.Store, error) {
	return runstore.NewStore(a.config.DatabasePath)
}

// Serve starts the HTTP API server. Blocks until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	store, err := a.OpenStore()
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}

	bus := runstore.NewEventBus()
	run := runner.New(store, bus, a, a.config.Model)
	run.Start(ctx)

	handler := server.New(store, bus, run)

	srv := &http.Server{
		Addr:    a.config.Addr,
		Handler: handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("PatchPilot server listening on %s", a.config.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	run.Stop()
	return store.Close()
}
