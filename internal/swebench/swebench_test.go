package swebench

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDataset = `{"instance_id": "django__django-11039", "repo": "django/django", "base_commit": "abc123", "problem_statement": "sqlmigrate wraps its output in BEGIN/COMMIT even for non-atomic migrations"}

{"instance_id": "astropy__astropy-12907", "repo": "astropy/astropy", "base_commit": "def456", "problem_statement": "Modeling separability matrix does not compute correctly for nested models"}
`

type stubFinder struct {
	calls int
	patch string
	err   error
}

func (f *stubFinder) FindPatch(ctx context.Context, bugDescription, projectDir, instanceID string) (string, error) {
	f.calls++
	return f.patch, f.err
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeDataset(t, sampleDataset)

	instances, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("got %d instances; want 2", len(instances))
	}
	if instances[0].InstanceID != "django__django-11039" {
		t.Errorf("instance_id = %q; want django__django-11039", instances[0].InstanceID)
	}
	if instances[0].Repo != "django/django" {
		t.Errorf("repo = %q; want django/django", instances[0].Repo)
	}
	if instances[0].BaseCommit != "abc123" {
		t.Errorf("base_commit = %q; want abc123", instances[0].BaseCommit)
	}
	if !strings.Contains(instances[1].ProblemStatement, "separability matrix") {
		t.Errorf("problem_statement = %q; want the astropy text", instances[1].ProblemStatement)
	}
}

func TestLoadDataset_BadLine(t *testing.T) {
	path := writeDataset(t, "{\"instance_id\": \"x\"}\nnot json at all\n")

	if _, err := LoadDataset(path); err == nil {
		t.Fatal("expected error for malformed dataset line")
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	if _, err := LoadDataset(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("expected error for missing dataset file")
	}
}

func TestNewFillsDefaults(t *testing.T) {
	h := New(&stubFinder{}, "test-model", Options{DatasetPath: "x.jsonl"})
	if h.opts.OutputDir != "swebench_outputs" {
		t.Errorf("OutputDir = %q; want swebench_outputs", h.opts.OutputDir)
	}
	if h.opts.ProjectsDir != "projects" {
		t.Errorf("ProjectsDir = %q; want projects", h.opts.ProjectsDir)
	}
}

func TestFindInstance(t *testing.T) {
	instances := []Instance{
		{InstanceID: "a"},
		{InstanceID: "b"},
	}
	if inst, ok := findInstance(instances, "b"); !ok || inst.InstanceID != "b" {
		t.Errorf("findInstance(b) = %v, %v; want b, true", inst.InstanceID, ok)
	}
	if _, ok := findInstance(instances, "c"); ok {
		t.Error("findInstance(c) = true; want false")
	}
}

func TestWriteResults(t *testing.T) {
	modeOnlyDiff := "diff --git a/script.sh b/script.sh\nold mode 100644\nnew mode 100755\n"
	contentDiff := "diff --git a/app.py b/app.py\n--- a/app.py\n+++ b/app.py\n@@ -1,1 +1,1 @@\n-old\n+new\n"
	raw := modeOnlyDiff + contentDiff

	h := New(&stubFinder{}, "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0", Options{})
	outDir := t.TempDir()

	inst := Instance{InstanceID: "django__django-11039"}
	if err := h.writeResults(outDir, inst, raw); err != nil {
		t.Fatalf("writeResults failed: %v", err)
	}

	resultData, err := os.ReadFile(filepath.Join(outDir, "result.json"))
	if err != nil {
		t.Fatalf("reading result.json: %v", err)
	}
	for _, want := range []string{
		`"instance_id": "django__django-11039"`,
		`"model_name_or_path": "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0"`,
		`"patch"`,
	} {
		if !strings.Contains(string(resultData), want) {
			t.Errorf("result.json missing %s:\n%s", want, resultData)
		}
	}

	rawData, err := os.ReadFile(filepath.Join(outDir, "raw_patch.diff"))
	if err != nil {
		t.Fatalf("reading raw_patch.diff: %v", err)
	}
	if string(rawData) != raw {
		t.Errorf("raw_patch.diff = %q; want the unmodified patch", rawData)
	}

	// The clean pass drops the mode-only file diff.
	cleanData, err := os.ReadFile(filepath.Join(outDir, "patch.diff"))
	if err != nil {
		t.Fatalf("reading patch.diff: %v", err)
	}
	if strings.Contains(string(cleanData), "script.sh") {
		t.Errorf("patch.diff kept the mode-only diff:\n%s", cleanData)
	}
	if !strings.Contains(string(cleanData), "app.py") {
		t.Errorf("patch.diff lost the content diff:\n%s", cleanData)
	}
}

func TestRunSkipsProcessedInstances(t *testing.T) {
	datasetPath := writeDataset(t, sampleDataset)
	outputDir := t.TempDir()

	// Pre-create both output directories so every instance is skipped
	// before any git work happens.
	for _, id := range []string{"django__django-11039", "astropy__astropy-12907"} {
		if err := os.MkdirAll(filepath.Join(outputDir, id), 0o755); err != nil {
			t.Fatalf("creating output dir: %v", err)
		}
	}

	finder := &stubFinder{}
	h := New(finder, "test-model", Options{
		DatasetPath: datasetPath,
		OutputDir:   outputDir,
		ProjectsDir: t.TempDir(),
	})

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if finder.calls != 0 {
		t.Errorf("finder called %d times; want 0 for already-processed instances", finder.calls)
	}
}

func TestRunTargetedInstanceNotFound(t *testing.T) {
	datasetPath := writeDataset(t, sampleDataset)

	h := New(&stubFinder{}, "test-model", Options{
		DatasetPath: datasetPath,
		OutputDir:   t.TempDir(),
		ProjectsDir: t.TempDir(),
		InstanceID:  "does__not-exist",
	})

	err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown instance ID")
	}
	if !strings.Contains(err.Error(), "not found in dataset") {
		t.Errorf("error = %q; want mention of the dataset", err)
	}
}
