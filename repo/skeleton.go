package repo

import (
	"fmt"
	"strconv"
	"strings"
)

// Skeleton reduces file content to its structural lines: class, function
// and type declarations, imports, and top-level typed assignments. Gaps
// between kept lines are marked with "...". With lineNumbers each kept
// line carries a right-aligned "N |" prefix.
func Skeleton(content string, lineNumbers bool) string {
	lines := strings.Split(content, "\n")
	width := len(strconv.Itoa(len(lines)))

	var kept []string
	lastKept := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		num := i + 1

		switch {
		case containsAny(stripped, "class ", "def ", "async def ", "func ", "type "):
			kept = appendSkeletonLine(kept, line, num, lastKept, width, lineNumbers)
			lastKept = num
		case strings.Contains(stripped, "=") && !strings.HasPrefix(stripped, "#") && !strings.HasPrefix(stripped, "//"):
			// Top-level typed or keyword assignments only.
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			lhs := strings.SplitN(stripped, "=", 2)[0]
			if indent == 0 && containsAny(lhs, "var", "let", "const", ": Dict", ": List", ": Set") {
				kept = appendSkeletonLine(kept, line, num, lastKept, width, lineNumbers)
				lastKept = num
			}
		case containsAny(stripped, "import ", "from ", "package "):
			kept = appendSkeletonLine(kept, line, num, lastKept, width, lineNumbers)
			lastKept = num
		}
	}
	return strings.Join(kept, "\n")
}

func appendSkeletonLine(kept []string, line string, num, lastKept, width int, lineNumbers bool) []string {
	if lastKept > 0 && num-lastKept > 1 {
		gap := "..."
		if lineNumbers {
			gap += strings.Repeat(" ", width)
		}
		kept = append(kept, gap)
	}
	if lineNumbers {
		line = fmt.Sprintf("%*d |%s", width, num, line)
	}
	return append(kept, line)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
