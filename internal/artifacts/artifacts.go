// Package artifacts persists per-run outputs: stage result JSON files
// and raw LLM transcripts, under one directory per run.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// stageDirs are created up front for every run.
var stageDirs = []string{
	"file_level",
	"irrelevant_folders",
	"code_elements",
	"edit_locations",
	"repairs",
	"tests",
	"validation",
}

// Store writes run artifacts under a base directory.
type Store struct {
	base string
}

// NewStore creates the stage directory layout under base.
func NewStore(base string) (*Store, error) {
	for _, dir := range stageDirs {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return &Store{base: base}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.base }

// SaveJSON writes v as indented JSON to name under the stage directory.
func (s *Store) SaveJSON(stage, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.base, stage, name), data, 0o644)
}

// SaveTranscript records one raw model exchange under the stage
// directory, creating it on demand for stages without a fixed slot.
// Filenames carry a timestamp plus a short random suffix so exchanges
// within the same second do not clobber each other.
func (s *Store) SaveTranscript(stage, details, response string) error {
	dir := filepath.Join(s.base, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.txt", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	content := fmt.Sprintf("=== Details ===\n%s\n\n=== Response ===\n%s", details, response)
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
