// Package patch parses SEARCH/REPLACE edit blocks produced by the
// repair stage, applies them to file snapshots and renders git-style
// unified diffs.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Hunk is one SEARCH/REPLACE edit. Start is the 1-based line hint from
// the "(line X-Y)" marker, zero when the marker is absent. Old and New
// hold the search and replacement lines, trailing newlines included.
type Hunk struct {
	Start int
	Old   []string
	New   []string
}

var lineHintRe = regexp.MustCompile(`\(line (\d+)-(\d+)\)`)

// ParseEdits extracts edit hunks from a model response, keyed by the
// "### path" header each block sits under. Fence markers and blank
// lines inside hunks are ignored. A repeated header resets the list
// for that file.
func ParseEdits(response string) map[string][]Hunk {
	files := make(map[string][]Hunk)
	var current string
	var hunk *Hunk
	inOld := false
	for _, line := range strings.Split(response, "\n") {
		switch {
		case strings.HasPrefix(line, "```"):
			// fence marker, not content
		case strings.HasPrefix(line, "### "):
			current = strings.TrimSpace(line[4:])
			files[current] = nil
		case strings.Contains(line, "<<<<<<< SEARCH"):
			start := 0
			if m := lineHintRe.FindStringSubmatch(line); m != nil {
				start, _ = strconv.Atoi(m[1])
			}
			hunk = &Hunk{Start: start}
			inOld = true
		case line == "=======" && hunk != nil:
			inOld = false
		case strings.HasPrefix(line, ">>>>>>> REPLACE"):
			if hunk != nil && current != "" {
				files[current] = append(files[current], *hunk)
			}
			hunk = nil
		case hunk != nil && strings.TrimSpace(line) != "":
			if inOld {
				hunk.Old = append(hunk.Old, line+"\n")
			} else {
				hunk.New = append(hunk.New, line+"\n")
			}
		}
	}
	return files
}

// File is a line snapshot of one project file. Lines keep their
// trailing newlines so they join back verbatim.
type File struct {
	Path  string
	Lines []string
}

// NewFile snapshots content under path.
func NewFile(path, content string) File {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return File{Path: path, Lines: lines}
}

// Content reassembles the snapshot.
func (f File) Content() string {
	return strings.Join(f.Lines, "")
}

// Apply returns a copy of f with the hunks applied in order. A hunk
// with a line hint must match within two lines of it; one without is
// located by searching the whole file. Matching compares the joined
// block with surrounding whitespace trimmed.
func (f File) Apply(hunks []Hunk) (File, error) {
	lines := append([]string(nil), f.Lines...)
	for _, h := range hunks {
		if len(h.Old) == 0 {
			return File{}, fmt.Errorf("%s: empty search block", f.Path)
		}
		search := strings.TrimSpace(strings.Join(h.Old, ""))
		start := -1
		if h.Start > 0 {
			hint := h.Start - 1
			lo := hint - 2
			if lo < 0 {
				lo = 0
			}
			hi := hint + len(h.Old) + 2
			if hi > len(lines) {
				hi = len(lines)
			}
			for i := lo; i+len(h.Old) <= hi; i++ {
				if strings.TrimSpace(strings.Join(lines[i:i+len(h.Old)], "")) == search {
					start = i
					break
				}
			}
			if start < 0 {
				return File{}, fmt.Errorf("%s: search block not found near line %d", f.Path, h.Start)
			}
		} else {
			joined := strings.Join(lines, "")
			pos := strings.Index(joined, search)
			if pos < 0 {
				return File{}, fmt.Errorf("%s: search block not found", f.Path)
			}
			start = strings.Count(joined[:pos], "\n")
		}
		patched := make([]string, 0, len(lines)-len(h.Old)+len(h.New))
		patched = append(patched, lines[:start]...)
		patched = append(patched, h.New...)
		patched = append(patched, lines[start+len(h.Old):]...)
		lines = patched
	}
	return File{Path: f.Path, Lines: lines}, nil
}

// Unified renders a git-style unified diff between two snapshots of
// the same file. Identical snapshots yield the empty string.
func Unified(a, b File) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a.Lines,
		B:        b.Lines,
		FromFile: "a/" + a.Path,
		ToFile:   "b/" + b.Path,
		Context:  3,
	})
	if err != nil || text == "" {
		return ""
	}
	return fmt.Sprintf("diff --git a/%s b/%s\n%s", a.Path, b.Path, text)
}

// Clean strips file diffs that carry no content changes, such as pure
// permission-mode flips, from a consolidated patch. Text before the
// first "diff --git" line is dropped.
func Clean(patch string) string {
	var fileDiffs []string
	var current []string
	for _, line := range strings.Split(strings.TrimSuffix(patch, "\n"), "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			if len(current) > 0 {
				fileDiffs = append(fileDiffs, strings.Join(current, "\n"))
				current = nil
			}
			current = append(current, line)
		} else if len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		fileDiffs = append(fileDiffs, strings.Join(current, "\n"))
	}

	var kept []string
	for _, diff := range fileDiffs {
		if hasContentChanges(diff) {
			kept = append(kept, diff)
		}
	}
	return strings.Join(kept, "\n")
}

func hasContentChanges(diff string) bool {
	for _, line := range strings.Split(diff, "\n") {
		if (strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")) &&
			!strings.HasPrefix(line, "old mode ") && !strings.HasPrefix(line, "new mode ") {
			return true
		}
	}
	return false
}
