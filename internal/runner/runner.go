// Package runner executes bug-fixing runs in the background and records
// their lifecycle in the run store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/runstore"
	"github.com/jxucoder/PatchPilot/pipeline"
)

// StageProvider builds the pipeline stages for one run. The root
// package implements it, so the runner stays free of provider wiring.
type StageProvider interface {
	Stages(instanceID string) ([]pipeline.Stage, error)
}

// Runner drives runs through the pipeline in background goroutines.
type Runner struct {
	store  *runstore.Store
	bus    *runstore.EventBus
	stages StageProvider
	model  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Runner. Call Start before StartRun.
func New(store *runstore.Store, bus *runstore.EventBus, stages StageProvider, model string) *Runner {
	return &Runner{store: store, bus: bus, stages: stages, model: model}
}

// Start prepares the runner for background work.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
}

// Stop cancels all background work and waits for in-flight runs.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// StartRun creates a run record and executes the pipeline in the
// background. An empty instanceID means a fresh ID is generated.
func (r *Runner) StartRun(bugDescription, projectDir, instanceID string) (*runstore.Run, error) {
	id := instanceID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	now := time.Now().UTC()

	run := &runstore.Run{
		ID:             id,
		BugDescription: bugDescription,
		ProjectDir:     projectDir,
		Model:          r.model,
		Status:         runstore.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(run)
	}()

	return run, nil
}

// execute drives one run through all pipeline stages.
func (r *Runner) execute(run *runstore.Run) {
	run.Status = runstore.StatusRunning
	r.store.UpdateRun(run)
	r.emitEvent(run.ID, "status", string(runstore.StatusRunning))

	stages, err := r.stages.Stages(run.ID)
	if err != nil {
		r.failRun(run, fmt.Sprintf("building pipeline: %v", err))
		return
	}

	pctx := &pipeline.Context{
		Ctx:            r.ctx,
		BugDescription: run.BugDescription,
		ProjectDir:     run.ProjectDir,
	}
	for _, stage := range stages {
		r.emitEvent(run.ID, "stage", stage.Name())
		if err := stage.Execute(pctx); err != nil {
			if errors.Is(err, pipeline.ErrHalt) {
				break
			}
			r.failRun(run, fmt.Sprintf("stage %s: %v", stage.Name(), err))
			return
		}
	}

	if pctx.Patch == "" {
		run.Status = runstore.StatusNoPatch
	} else {
		run.Status = runstore.StatusComplete
		run.Patch = pctx.Patch
	}
	r.store.UpdateRun(run)
	r.emitEvent(run.ID, "done", string(run.Status))
}

func (r *Runner) failRun(run *runstore.Run, errMsg string) {
	log.Error().Str("run", run.ID).Msg(errMsg)
	run.Status = runstore.StatusError
	run.Error = errMsg
	r.store.UpdateRun(run)
	r.emitEvent(run.ID, "error", errMsg)
}

func (r *Runner) emitEvent(runID, eventType, data string) {
	event := &runstore.Event{
		RunID:     runID,
		Type:      eventType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.AddEvent(event); err != nil {
		log.Error().Err(err).Msg("storing event")
	}
	r.bus.Publish(runID, event)
}
