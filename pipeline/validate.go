package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/artifacts"
	"github.com/jxucoder/PatchPilot/internal/logging"
	"github.com/jxucoder/PatchPilot/patch"
)

// ValidateStage applies each fix to in-memory snapshots of the project
// files, scores it by whether it applied cleanly, and renders the
// consolidated diff of everything that stuck. Project files on disk
// are never modified.
type ValidateStage struct {
	store *artifacts.Store
}

// NewValidateStage creates the validation stage.
func NewValidateStage(store *artifacts.Store) *ValidateStage {
	return &ValidateStage{store: store}
}

func (s *ValidateStage) Name() string { return "validate" }

func (s *ValidateStage) Execute(ctx *Context) error {
	logging.StepStart("Validating Fixes")

	originals := make(map[string]patch.File)
	snapshots := make(map[string]patch.File)
	var touched []string

	load := func(file string) (patch.File, bool) {
		if snap, ok := snapshots[file]; ok {
			return snap, true
		}
		data, err := os.ReadFile(filepath.Join(ctx.ProjectDir, file))
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("reading file for validation")
			return patch.File{}, false
		}
		snap := patch.NewFile(file, string(data))
		originals[file] = snap
		snapshots[file] = snap
		touched = append(touched, file)
		return snap, true
	}

	for i := range ctx.Fixes {
		fix := &ctx.Fixes[i]

		hunksByFile := patch.ParseEdits(fix.Edit)
		files := make([]string, 0, len(hunksByFile))
		for file, hunks := range hunksByFile {
			if len(hunks) > 0 {
				files = append(files, file)
			}
		}
		if len(files) == 0 {
			log.Warn().Str("file", fix.File).Msg("no hunks parsed from fix")
			continue
		}
		sort.Strings(files)

		// A fix only scores when every one of its hunks applies.
		applied := make(map[string]patch.File, len(files))
		ok := true
		for _, file := range files {
			snap, loaded := load(file)
			if !loaded {
				ok = false
				break
			}
			patched, err := snap.Apply(hunksByFile[file])
			if err != nil {
				log.Error().Err(err).Msg("applying fix")
				ok = false
				break
			}
			applied[file] = patched
		}
		if !ok {
			continue
		}
		for file, snap := range applied {
			snapshots[file] = snap
		}
		fix.Score = 1
	}

	var diffs []string
	for _, file := range touched {
		if d := patch.Unified(originals[file], snapshots[file]); d != "" {
			diffs = append(diffs, d)
		}
	}
	ctx.Patch = strings.Join(diffs, "")

	if err := s.store.SaveJSON("validation", "validation_results.json", ctx.Fixes); err != nil {
		return err
	}
	logging.StepEnd("Validating Fixes", fmt.Sprintf("Validated %d fixes", len(ctx.Fixes)))
	return nil
}
