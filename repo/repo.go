// Package repo renders local project trees, numbered file listings,
// structural skeletons and extracted code sections for prompting.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Tree renders the project layout as an indented listing, two spaces per
// level, keeping only files that match one of the extensions. Files at
// the root appear bare; each directory contributes a "name/" line with
// its files below it. Hidden directories (.git, .venv, ...) are skipped.
func Tree(root string, exts []string) (string, error) {
	var lines []string
	if err := appendTree(&lines, root, 0, exts); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func appendTree(lines *[]string, dir string, depth int, exts []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	fileIndent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if !e.IsDir() && hasExt(e.Name(), exts) {
			*lines = append(*lines, fileIndent+e.Name())
		}
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		*lines = append(*lines, strings.Repeat("  ", depth)+e.Name()+"/")
		if err := appendTree(lines, filepath.Join(dir, e.Name()), depth+1, exts); err != nil {
			return err
		}
	}
	return nil
}

// ReadNumbered returns the file content with each line prefixed by a
// right-aligned "N|" marker.
func ReadNumbered(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return numberLines(string(data)), nil
}

func numberLines(content string) string {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	width := len(strconv.Itoa(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d|%s", width, i+1, line)
	}
	return b.String()
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
