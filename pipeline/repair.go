package pipeline

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/artifacts"
	"github.com/jxucoder/PatchPilot/internal/logging"
	"github.com/jxucoder/PatchPilot/llm"
	"github.com/jxucoder/PatchPilot/repo"
)

// repairTemperature is deliberately higher than the localization
// default so repeated samples vary.
const repairTemperature = 0.8

const repairFileInstruction = "Please fix the following code sections:"

// RepairStage generates SEARCH/REPLACE fix candidates for the located
// edit regions.
type RepairStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewRepairStage creates the fix generation stage.
func NewRepairStage(client llm.Client, store *artifacts.Store, opts Options) *RepairStage {
	return &RepairStage{client: client, store: store, opts: opts}
}

func (s *RepairStage) Name() string { return "repair" }

func (s *RepairStage) Execute(ctx *Context) error {
	logging.StepStart("Generating Fixes")

	var parts []string
	for _, file := range ctx.SuspectFiles {
		locations := ctx.EditLocations[file]
		if len(locations) == 0 {
			continue
		}
		var sections []string
		for _, loc := range locations {
			switch {
			case loc.Type == "line":
				sections = append(sections, loc.Content)
			case loc.Name != "":
				extracted, err := repo.Sections(file, ctx.ProjectDir, []repo.Element{{Type: loc.Type, Name: loc.Name}}, s.opts.ContextWindow)
				if err != nil {
					log.Warn().Err(err).Str("file", file).Msg("extracting sections")
					continue
				}
				sections = append(sections, extracted...)
			}
		}
		if len(sections) > 0 {
			parts = append(parts, fmt.Sprintf(fileContentInBlockTemplate, file, strings.Join(sections, "\n\n")))
		}
	}
	combined := strings.Join(parts, "\n\n")

	var fixes []Fix
	for sampleIdx := 0; sampleIdx < s.opts.MaxSamples; sampleIdx++ {
		log.Info().Msgf("Generating sample %d/%d", sampleIdx+1, s.opts.MaxSamples)

		prompt := fmt.Sprintf(GenerateFixPrompt, ctx.BugDescription, repairFileInstruction, combined)
		response, err := complete(ctx.Ctx, s.client, s.opts, "repairs", prompt, repairTemperature)
		if err != nil {
			return err
		}
		details := fmt.Sprintf("Problem: %s\nSample: %d", ctx.BugDescription, sampleIdx+1)
		if err := s.store.SaveTranscript("repairs", details, response); err != nil {
			return err
		}
		fixes = append(fixes, parseFixes(response, ctx.EditLocations)...)
	}

	if err := s.store.SaveJSON("repairs", "fixes.json", fixes); err != nil {
		return err
	}
	if len(fixes) == 0 {
		log.Warn().Msg("no fixes generated")
		return ErrHalt
	}

	ctx.Fixes = fixes
	logging.StepEnd("Generating Fixes", fmt.Sprintf("Generated %d valid fixes", len(fixes)))
	return nil
}

// parseFixes pulls SEARCH/REPLACE edit commands out of a repair
// response and pairs each with the edit location whose content appears
// inside it, falling back to the file's first location.
func parseFixes(response string, editLocations map[string][]Location) []Fix {
	var fixes []Fix
	blocks := strings.Split(response, "```")
	for i := 1; i < len(blocks); i += 2 {
		edit := strings.TrimSpace(blocks[i])
		if !strings.Contains(edit, "<<<<<<< SEARCH") {
			continue
		}
		headerParts := strings.SplitN(edit, "###", 3)
		if len(headerParts) < 2 {
			continue
		}
		header := strings.TrimSpace(headerParts[1])
		file := strings.TrimSpace(strings.Split(header, "\n")[0])
		if file == "" {
			continue
		}

		var location Location
		if locations := editLocations[file]; len(locations) > 0 {
			location = locations[0]
			for _, cand := range locations {
				if cand.Content != "" && strings.Contains(edit, cand.Content) {
					location = cand
					break
				}
			}
		}
		fixes = append(fixes, Fix{File: file, Location: location, Edit: edit})
		log.Info().Msgf("Successfully generated fix for %s", file)
	}
	return fixes
}
