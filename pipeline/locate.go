package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/artifacts"
	"github.com/jxucoder/PatchPilot/internal/logging"
	"github.com/jxucoder/PatchPilot/llm"
	"github.com/jxucoder/PatchPilot/repo"
)

// maxSuspectFiles caps how many files the file-search response may
// contribute, mirroring the prompt's "at most 5 files" contract.
const maxSuspectFiles = 5

// LocateFilesStage asks the model which project files are implicated
// by the bug description.
type LocateFilesStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewLocateFilesStage creates the file localization stage.
func NewLocateFilesStage(client llm.Client, store *artifacts.Store, opts Options) *LocateFilesStage {
	return &LocateFilesStage{client: client, store: store, opts: opts}
}

func (s *LocateFilesStage) Name() string { return "locate_files" }

func (s *LocateFilesStage) Execute(ctx *Context) error {
	logging.StepStart("Locating Buggy Files")

	structure, err := repo.Tree(ctx.ProjectDir, s.opts.Extensions)
	if err != nil {
		return fmt.Errorf("scanning project: %w", err)
	}

	prompt := fmt.Sprintf(FileSearchPrompt, ctx.BugDescription, structure)
	response, err := complete(ctx.Ctx, s.client, s.opts, "file_level", prompt, s.opts.Temperature)
	if err != nil {
		return err
	}
	details := fmt.Sprintf("Problem: %s\nRepo Structure: %s", ctx.BugDescription, structure)
	if err := s.store.SaveTranscript("file_level", details, response); err != nil {
		return err
	}

	items := listFromResponse(response)
	if len(items) > maxSuspectFiles {
		items = items[:maxSuspectFiles]
	}
	var files []string
	for _, f := range items {
		if _, err := os.Stat(filepath.Join(ctx.ProjectDir, f)); err == nil {
			files = append(files, f)
		}
	}
	if err := s.store.SaveJSON("file_level", "buggy_files.json", files); err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn().Msg("no buggy files found to analyze")
		return ErrHalt
	}

	ctx.SuspectFiles = files
	logging.StepEnd("Locating Buggy Files", strings.Join(files, ", "))
	return nil
}

// PruneFoldersStage asks the model which folders are irrelevant to the
// bug and drops suspect files living under them. The stage is optional
// and disabled by default.
type PruneFoldersStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewPruneFoldersStage creates the folder pruning stage.
func NewPruneFoldersStage(client llm.Client, store *artifacts.Store, opts Options) *PruneFoldersStage {
	return &PruneFoldersStage{client: client, store: store, opts: opts}
}

func (s *PruneFoldersStage) Name() string { return "prune_folders" }

func (s *PruneFoldersStage) Execute(ctx *Context) error {
	structure, err := repo.Tree(ctx.ProjectDir, s.opts.Extensions)
	if err != nil {
		return fmt.Errorf("scanning project: %w", err)
	}

	prompt := fmt.Sprintf(IrrelevantFoldersPrompt, ctx.BugDescription, structure)
	response, err := complete(ctx.Ctx, s.client, s.opts, "irrelevant_folders", prompt, s.opts.Temperature)
	if err != nil {
		return err
	}
	details := fmt.Sprintf("Problem: %s\nRepo Structure: %s", ctx.BugDescription, structure)
	if err := s.store.SaveTranscript("irrelevant_folders", details, response); err != nil {
		return err
	}

	folders := listFromResponse(response)
	if err := s.store.SaveJSON("irrelevant_folders", "irrelevant_folders.json", folders); err != nil {
		return err
	}
	if len(folders) == 0 {
		return nil
	}

	var kept []string
	for _, f := range ctx.SuspectFiles {
		if !underAny(f, folders) {
			kept = append(kept, f)
		}
	}
	if len(kept) < len(ctx.SuspectFiles) {
		log.Info().Msgf("pruned %d suspect files in irrelevant folders", len(ctx.SuspectFiles)-len(kept))
	}
	ctx.SuspectFiles = kept
	return nil
}

// LocateElementsStage narrows suspect files to the classes, functions
// and variables worth inspecting, using structural skeletons.
type LocateElementsStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewLocateElementsStage creates the code element localization stage.
func NewLocateElementsStage(client llm.Client, store *artifacts.Store, opts Options) *LocateElementsStage {
	return &LocateElementsStage{client: client, store: store, opts: opts}
}

func (s *LocateElementsStage) Name() string { return "locate_elements" }

func (s *LocateElementsStage) Execute(ctx *Context) error {
	logging.StepStart("Locating Code Elements")

	top := ctx.SuspectFiles
	if len(top) > s.opts.TopFiles {
		top = top[:s.opts.TopFiles]
	}

	var parts []string
	var analyzed []string
	for _, file := range top {
		data, err := os.ReadFile(filepath.Join(ctx.ProjectDir, file))
		if err != nil || len(data) == 0 {
			log.Warn().Str("file", file).Msg("empty or unreadable file")
			continue
		}
		skeleton := repo.Skeleton(string(data), true)
		log.Debug().Msgf("skeleton for %s:\n%s", file, skeleton)
		parts = append(parts, fmt.Sprintf(fileContentInBlockTemplate, file, skeleton))
		analyzed = append(analyzed, file)
	}
	if len(parts) == 0 {
		log.Warn().Msg("no file contents found to analyze")
		return ErrHalt
	}

	prompt := fmt.Sprintf(CodeElementsPrompt, ctx.BugDescription, strings.Join(parts, "\n\n"))
	response, err := complete(ctx.Ctx, s.client, s.opts, "code_elements", prompt, s.opts.Temperature)
	if err != nil {
		return err
	}
	if err := s.store.SaveTranscript("code_elements", "", response); err != nil {
		return err
	}

	suspects := make(map[string]bool, len(analyzed))
	for _, f := range analyzed {
		suspects[f] = true
	}

	elements := make(map[string][]repo.Element)
	if block, ok := fencedCode(response); ok {
		current := ""
		for _, raw := range strings.Split(block, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if !strings.Contains(line, ":") {
				if suspects[line] {
					current = line
					if _, seen := elements[current]; !seen {
						elements[current] = nil
					}
				} else {
					current = ""
				}
				continue
			}
			kind, name, ok := strings.Cut(line, ": ")
			if !ok || current == "" {
				continue
			}
			switch kind {
			case "class", "function", "variable":
				elements[current] = append(elements[current], repo.Element{Type: kind, Name: strings.TrimSpace(name)})
			}
		}
	}

	if err := s.store.SaveJSON("code_elements", "code_elements.json", elements); err != nil {
		return err
	}
	if len(elements) == 0 {
		log.Warn().Msg("no code elements identified for analysis")
		return ErrHalt
	}

	ctx.CodeElements = elements
	total := 0
	for _, els := range elements {
		total += len(els)
	}
	logging.StepEnd("Locating Code Elements", fmt.Sprintf("%d elements in %d files", total, len(elements)))
	return nil
}

// LocateLinesStage pins down the exact regions to edit: named elements
// re-extracted from source, or explicit line ranges with surrounding
// context.
type LocateLinesStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewLocateLinesStage creates the line localization stage.
func NewLocateLinesStage(client llm.Client, store *artifacts.Store, opts Options) *LocateLinesStage {
	return &LocateLinesStage{client: client, store: store, opts: opts}
}

func (s *LocateLinesStage) Name() string { return "locate_lines" }

func (s *LocateLinesStage) Execute(ctx *Context) error {
	var parts []string
	for _, file := range ctx.SuspectFiles {
		elements := ctx.CodeElements[file]
		if len(elements) == 0 {
			continue
		}
		sections, err := repo.Sections(file, ctx.ProjectDir, elements, s.opts.ContextWindow)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("extracting sections")
			continue
		}
		if len(sections) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf(fileContentInBlockTemplate, file, strings.Join(sections, "\n")))
	}

	prompt := fmt.Sprintf(LineLevelPrompt, ctx.BugDescription, strings.Join(parts, "\n\n"))
	response, err := complete(ctx.Ctx, s.client, s.opts, "line_level", prompt, s.opts.Temperature)
	if err != nil {
		return err
	}
	if err := s.store.SaveTranscript("line_level", "All files analysis", response); err != nil {
		return err
	}

	locations := make(map[string][]Location)
	total := 0
	if block, ok := fencedCode(response); ok {
		current := ""
		for _, raw := range strings.Split(block, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if !strings.Contains(line, ":") {
				if _, known := ctx.CodeElements[line]; known {
					current = line
					if _, seen := locations[current]; !seen {
						locations[current] = nil
					}
				} else {
					current = ""
				}
				continue
			}
			kind, rest, ok := strings.Cut(line, ": ")
			if !ok || current == "" {
				continue
			}
			switch kind {
			case "function":
				name := strings.TrimSpace(rest)
				for _, el := range ctx.CodeElements[current] {
					if el.Type != "function" || el.Name != name {
						continue
					}
					sections, err := repo.Sections(current, ctx.ProjectDir, []repo.Element{el}, s.opts.ContextWindow)
					if err == nil && len(sections) > 0 {
						locations[current] = append(locations[current], Location{
							Type:    "function",
							Name:    name,
							Content: sections[0],
						})
						total++
					}
					break
				}
			case "line":
				n, err := strconv.Atoi(strings.TrimSpace(rest))
				if err != nil {
					continue
				}
				numbered, err := repo.ReadNumbered(filepath.Join(ctx.ProjectDir, current))
				if err != nil {
					continue
				}
				lines := strings.Split(numbered, "\n")
				start := n - s.opts.ContextWindow
				if start < 1 {
					start = 1
				}
				end := n + s.opts.ContextWindow
				if end > len(lines) {
					end = len(lines)
				}
				if start > end {
					continue
				}
				locations[current] = append(locations[current], Location{
					Type:    "line",
					Start:   start,
					End:     end,
					Content: strings.Join(lines[start-1:end], "\n"),
				})
				total++
			}
		}
	}

	if err := s.store.SaveJSON("edit_locations", "edit_locations.json", locations); err != nil {
		return err
	}
	if total == 0 {
		log.Warn().Msg("no edit locations identified")
		return ErrHalt
	}

	ctx.EditLocations = locations
	return nil
}

// underAny reports whether path sits inside one of the folders.
func underAny(path string, folders []string) bool {
	for _, folder := range folders {
		folder = strings.TrimSuffix(strings.TrimSpace(folder), "/")
		if folder == "" {
			continue
		}
		if path == folder || strings.HasPrefix(path, folder+"/") {
			return true
		}
	}
	return false
}
