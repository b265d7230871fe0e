package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "b.py", "x = 1\n")
	writeFile(t, dir, "c.txt", "notes\n")
	writeFile(t, dir, ".git/f.go", "package f\n")
	writeFile(t, dir, "sub/d.go", "package d\n")
	writeFile(t, dir, "sub/nested/e.py", "y = 2\n")

	got, err := Tree(dir, []string{".go", ".py"})
	if err != nil {
		t.Fatalf("tree error: %v", err)
	}
	want := "a.go\nb.py\nsub/\n  d.go\n  nested/\n    e.py"
	if got != want {
		t.Fatalf("unexpected tree:\n%s\nwant:\n%s", got, want)
	}
}

func TestReadNumbered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.py", "alpha\nbeta\n")

	got, err := ReadNumbered(filepath.Join(dir, "f.py"))
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if got != "1|alpha\n2|beta\n" {
		t.Fatalf("unexpected numbering: %q", got)
	}
}

func TestReadNumberedPadsLineNumbers(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		b.WriteString("line\n")
	}
	writeFile(t, dir, "f.py", b.String())

	got, err := ReadNumbered(filepath.Join(dir, "f.py"))
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !strings.HasPrefix(got, " 1|line\n") {
		t.Fatalf("first line not padded: %q", got)
	}
	if !strings.Contains(got, "\n10|line\n") {
		t.Fatalf("last line mis-numbered: %q", got)
	}
}

func TestSkeletonPython(t *testing.T) {
	content := "import os\n\nitems: Dict = {}\n\n\ndef first():\n    return 1\n\n\nclass Thing:\n    def method(self):\n        pass\n"

	got := Skeleton(content, false)
	want := "import os\n...\nitems: Dict = {}\n...\ndef first():\n...\nclass Thing:\n    def method(self):"
	if got != want {
		t.Fatalf("unexpected skeleton:\n%s\nwant:\n%s", got, want)
	}
}

func TestSkeletonNumbered(t *testing.T) {
	content := "import os\n\nitems: Dict = {}\n\n\ndef first():\n    return 1\n\n\nclass Thing:\n    def method(self):\n        pass\n"

	got := Skeleton(content, true)
	want := " 1 |import os\n...  \n 3 |items: Dict = {}\n...  \n 6 |def first():\n...  \n10 |class Thing:\n11 |    def method(self):"
	if got != want {
		t.Fatalf("unexpected skeleton:\n%s\nwant:\n%s", got, want)
	}
}

func TestSkeletonGo(t *testing.T) {
	content := "package main\n\nimport \"fmt\"\n\nvar itemsDB = 3\n\nfunc total() int {\n\treturn 0\n}\n\ntype Cart struct {\n\tID int\n}\n"

	got := Skeleton(content, false)
	want := "package main\n...\nimport \"fmt\"\n...\nvar itemsDB = 3\n...\nfunc total() int {\n...\ntype Cart struct {"
	if got != want {
		t.Fatalf("unexpected skeleton:\n%s\nwant:\n%s", got, want)
	}
}

func TestSectionsPython(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.py", "import os\n\ndef add(a, b):\n    return a + b\n\ndef total(items):\n    s = 0\n    for i in items:\n        s = add(s, i)\n    return s\n\nrate = 3\n")

	sections, err := Sections("calc.py", dir, []Element{
		{Type: "function", Name: "total"},
		{Type: "variable", Name: "rate"},
	}, 0)
	if err != nil {
		t.Fatalf("sections error: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	divider := strings.Repeat("-", 40)
	wantFn := "=== Function: total ===\n" + divider +
		"\ndef total(items):\n    s = 0\n    for i in items:\n        s = add(s, i)\n    return s\n" + divider
	if sections[0] != wantFn {
		t.Fatalf("unexpected function section:\n%s", sections[0])
	}
	wantVar := "=== Variable: rate ===\n" + divider + "\nrate = 3\n" + divider
	if sections[1] != wantVar {
		t.Fatalf("unexpected variable section:\n%s", sections[1])
	}
}

func TestSectionsGo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cart.go", "package main\n\nfunc multiply(a, b int) int {\n\treturn a + b\n}\n\ntype Cart struct {\n\tItems []int\n}\n\nfunc (c *Cart) Total() int {\n\treturn len(c.Items)\n}\n\nvar total = 0\n")

	sections, err := Sections("cart.go", dir, []Element{
		{Type: "function", Name: "multiply"},
		{Type: "class", Name: "Cart"},
		{Type: "function", Name: "Cart.Total"},
		{Type: "variable", Name: "total"},
	}, 0)
	if err != nil {
		t.Fatalf("sections error: %v", err)
	}
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}

	if !strings.Contains(sections[0], "func multiply(a, b int) int {\n\treturn a + b\n}") {
		t.Fatalf("function extent wrong:\n%s", sections[0])
	}
	if !strings.Contains(sections[1], "type Cart struct {\n\tItems []int\n}") {
		t.Fatalf("type extent wrong:\n%s", sections[1])
	}
	if !strings.HasPrefix(sections[2], "=== Function: Cart.Total ===") {
		t.Fatalf("method header wrong:\n%s", sections[2])
	}
	if !strings.Contains(sections[2], "func (c *Cart) Total() int {") {
		t.Fatalf("method extent wrong:\n%s", sections[2])
	}
	if !strings.Contains(sections[3], "\nvar total = 0\n") {
		t.Fatalf("variable extent wrong:\n%s", sections[3])
	}
}

func TestSectionsWindow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.py", "import os\n\ndef add(a, b):\n    return a + b\n\nrate = 3\n")

	sections, err := Sections("calc.py", dir, []Element{{Type: "variable", Name: "rate"}}, 1)
	if err != nil {
		t.Fatalf("sections error: %v", err)
	}
	divider := strings.Repeat("-", 40)
	want := "=== Variable: rate ===\n" + divider + "\n\nrate = 3\n\n" + divider
	if sections[0] != want {
		t.Fatalf("unexpected windowed section:\n%q", sections[0])
	}
}

func TestSectionsSkipsMissingElements(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.py", "rate = 3\n")

	sections, err := Sections("calc.py", dir, []Element{
		{Type: "function", Name: "nope"},
		{Type: "variable", Name: "rate"},
	}, 0)
	if err != nil {
		t.Fatalf("sections error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if !strings.Contains(sections[0], "rate = 3") {
		t.Fatalf("wrong surviving section:\n%s", sections[0])
	}
}

func TestSectionsMissingFile(t *testing.T) {
	if _, err := Sections("missing.py", t.TempDir(), nil, 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}
