package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Element names a code construct flagged during localization.
type Element struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Sections extracts the source blocks for the named elements from the
// file under root, each wrapped in a headed divider, optionally padded
// with window lines of surrounding context. Extents are found by a line
// scan: indentation for def/class declarations, bracket balance for
// braced ones. Elements that cannot be found are skipped.
func Sections(path, root string, elements []Element, window int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	var sections []string
	for _, el := range elements {
		decl := findDeclaration(lines, el)
		if decl < 0 {
			continue
		}
		end := declarationEnd(lines, decl)

		start := decl - window
		if start < 0 {
			start = 0
		}
		end += window
		if end > len(lines) {
			end = len(lines)
		}

		divider := strings.Repeat("-", 40)
		block := make([]string, 0, end-start+3)
		block = append(block, fmt.Sprintf("=== %s: %s ===", sectionTitle(el.Type), el.Name))
		block = append(block, divider)
		block = append(block, lines[start:end]...)
		block = append(block, divider)
		sections = append(sections, strings.Join(block, "\n"))
	}
	return sections, nil
}

// findDeclaration returns the 0-based line of the element's declaration,
// or -1. Qualified names ("Cart.Total") match on their last segment.
func findDeclaration(lines []string, el Element) int {
	name := el.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	for i, line := range lines {
		s := strings.TrimSpace(line)
		switch el.Type {
		case "function":
			if strings.HasPrefix(s, "def "+name+"(") ||
				strings.HasPrefix(s, "async def "+name+"(") ||
				(strings.HasPrefix(s, "func ") && strings.Contains(s, name+"(")) {
				return i
			}
		case "class":
			if strings.HasPrefix(s, "class "+name) ||
				strings.HasPrefix(s, "type "+name+" ") {
				return i
			}
		case "variable":
			if isAssignment(s, name) {
				return i
			}
		}
	}
	return -1
}

// isAssignment reports whether the line assigns to name (declarations
// and plain assignments, not comparisons or compound operators).
func isAssignment(s, name string) bool {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return false
	}
	if eq+1 < len(s) && s[eq+1] == '=' {
		return false
	}
	if eq > 0 && strings.ContainsRune("!<>+-*/%", rune(s[eq-1])) {
		return false
	}
	lhs := s[:eq]
	for _, tok := range strings.FieldsFunc(lhs, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ':' || r == '(' || r == ')'
	}) {
		if tok == name {
			return true
		}
	}
	return false
}

// declarationEnd returns the exclusive end line of the declaration
// starting at decl.
func declarationEnd(lines []string, decl int) int {
	s := strings.TrimSpace(lines[decl])
	if strings.HasPrefix(s, "def ") || strings.HasPrefix(s, "async def ") || strings.HasPrefix(s, "class ") {
		return indentEnd(lines, decl)
	}
	if strings.ContainsAny(lines[decl], "([{") ||
		(decl+1 < len(lines) && strings.TrimSpace(lines[decl+1]) == "{") {
		return bracketEnd(lines, decl)
	}
	return decl + 1
}

// indentEnd scans past lines indented deeper than the declaration,
// trimming trailing blanks.
func indentEnd(lines []string, decl int) int {
	declIndent := indentOf(lines[decl])
	end := decl + 1
	for end < len(lines) {
		s := strings.TrimSpace(lines[end])
		if s != "" && indentOf(lines[end]) <= declIndent {
			break
		}
		end++
	}
	for end > decl+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return end
}

// bracketEnd scans until every bracket opened from decl onward closes.
func bracketEnd(lines []string, decl int) int {
	depth := 0
	opened := false
	for i := decl; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '(', '[', '{':
				depth++
				opened = true
			case ')', ']', '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1
		}
		if !opened && i > decl {
			return i + 1
		}
	}
	return len(lines)
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func sectionTitle(t string) string {
	switch t {
	case "function":
		return "Function"
	case "class":
		return "Class"
	case "variable":
		return "Variable"
	case "":
		return t
	}
	return strings.ToUpper(t[:1]) + t[1:]
}
