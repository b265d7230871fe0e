// Package swebench runs the bug-fixing pipeline over a SWE-bench dataset
// export and writes per-instance prediction files.
package swebench

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/patch"
)

// Instance is one SWE-bench task: a repository, a commit to check out and
// a problem statement.
type Instance struct {
	InstanceID       string `json:"instance_id"`
	Repo             string `json:"repo"`
	BaseCommit       string `json:"base_commit"`
	ProblemStatement string `json:"problem_statement"`
}

// Result mirrors the SWE-bench prediction format.
type Result struct {
	InstanceID      string `json:"instance_id"`
	Patch           string `json:"patch"`
	ModelNameOrPath string `json:"model_name_or_path"`
}

// PatchFinder produces a patch for a bug description in a project
// directory. The root App implements it.
type PatchFinder interface {
	FindPatch(ctx context.Context, bugDescription, projectDir, instanceID string) (string, error)
}

// Options configures a harness run.
type Options struct {
	DatasetPath string // JSONL export of the dataset
	OutputDir   string // per-instance results, default swebench_outputs
	ProjectsDir string // cloned repositories, default projects
	InstanceID  string // process exactly this instance when set
}

// Harness drives the patch finder over dataset instances.
type Harness struct {
	finder PatchFinder
	model  string
	opts   Options
}

// New creates a Harness. The model string is recorded in each result file.
func New(finder PatchFinder, model string, opts Options) *Harness {
	if opts.OutputDir == "" {
		opts.OutputDir = "swebench_outputs"
	}
	if opts.ProjectsDir == "" {
		opts.ProjectsDir = "projects"
	}
	return &Harness{finder: finder, model: model, opts: opts}
}

// LoadDataset reads instances from a JSONL export, one JSON object per
// line. Blank lines are ignored.
func LoadDataset(path string) ([]Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var instances []Instance
	scanner := bufio.NewScanner(f)
	// Problem statements run long; the default 64K line limit is too small.
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var inst Instance
		if err := json.Unmarshal([]byte(line), &inst); err != nil {
			return nil, fmt.Errorf("parsing dataset line %d: %w", len(instances)+1, err)
		}
		instances = append(instances, inst)
	}
	return instances, scanner.Err()
}

// Run processes the dataset. With Options.InstanceID set, exactly that
// instance runs and its error stops the harness. Otherwise instances
// whose output directory already exists are skipped, and a failing
// instance is logged without stopping the rest.
func (h *Harness) Run(ctx context.Context) error {
	instances, err := LoadDataset(h.opts.DatasetPath)
	if err != nil {
		return err
	}

	if h.opts.InstanceID != "" {
		inst, ok := findInstance(instances, h.opts.InstanceID)
		if !ok {
			return fmt.Errorf("instance %s not found in dataset", h.opts.InstanceID)
		}
		log.Info().Msgf("Processing single instance: %s", h.opts.InstanceID)
		return h.processInstance(ctx, inst)
	}

	log.Info().Msgf("Processing %d instances", len(instances))
	for _, inst := range instances {
		if _, err := os.Stat(h.outputDir(inst.InstanceID)); err == nil {
			log.Info().Msgf("Instance %s already processed, skipping", inst.InstanceID)
			continue
		}
		if err := h.processInstance(ctx, inst); err != nil {
			log.Error().Err(err).Str("instance", inst.InstanceID).Msg("instance failed")
			continue
		}
	}
	return nil
}

func (h *Harness) processInstance(ctx context.Context, inst Instance) error {
	log.Info().Msgf("Processing %s...", inst.InstanceID)

	projectDir, err := h.setupProject(ctx, inst)
	if err != nil {
		return fmt.Errorf("setting up project: %w", err)
	}

	outDir := h.outputDir(inst.InstanceID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	patchText, err := h.finder.FindPatch(ctx, inst.ProblemStatement, projectDir, inst.InstanceID)
	if err != nil {
		// Record the empty outcome anyway so reruns skip this instance.
		log.Error().Err(err).Str("instance", inst.InstanceID).Msg("find patch failed")
		patchText = ""
	}

	return h.writeResults(outDir, inst, patchText)
}

// setupProject clones the instance repository if needed and force-checks
// out the base commit.
func (h *Harness) setupProject(ctx context.Context, inst Instance) (string, error) {
	repoDir := filepath.Join(h.opts.ProjectsDir, strings.ReplaceAll(inst.Repo, "/", "__"))

	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		if err := os.MkdirAll(h.opts.ProjectsDir, 0o755); err != nil {
			return "", fmt.Errorf("creating projects directory: %w", err)
		}
		cloneURL := fmt.Sprintf("https://github.com/%s.git", inst.Repo)
		log.Info().Msgf("Cloning %s", cloneURL)
		if err := runGit(ctx, "", "clone", cloneURL, repoDir); err != nil {
			return "", err
		}
	}

	if err := runGit(ctx, repoDir, "checkout", "-f", inst.BaseCommit); err != nil {
		return "", err
	}
	return repoDir, nil
}

func (h *Harness) writeResults(outDir string, inst Instance, patchText string) error {
	result := Result{
		InstanceID:      inst.InstanceID,
		Patch:           patchText,
		ModelNameOrPath: h.model,
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "result.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing result.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "raw_patch.diff"), []byte(patchText), 0o644); err != nil {
		return fmt.Errorf("writing raw_patch.diff: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "patch.diff"), []byte(patch.Clean(patchText)), 0o644); err != nil {
		return fmt.Errorf("writing patch.diff: %w", err)
	}
	log.Info().Msgf("Saved results to %s", outDir)
	return nil
}

func (h *Harness) outputDir(instanceID string) string {
	return filepath.Join(h.opts.OutputDir, instanceID)
}

func findInstance(instances []Instance, id string) (Instance, bool) {
	for _, inst := range instances {
		if inst.InstanceID == id {
			return inst, true
		}
	}
	return Instance{}, false
}

// runGit executes a git command, folding its output into any error.
func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w\noutput: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
