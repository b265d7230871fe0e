package pipeline

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/artifacts"
	"github.com/jxucoder/PatchPilot/llm"
)

// TestGenerationPrompt asks for a self-contained reproduction test
// that prints "Issue reproduced", "Issue resolved" or "Other issues".
// Argument: problem statement.
var TestGenerationPrompt = fenced(`
We are currently solving the following issue within our repository. Here is the issue text:
--- BEGIN ISSUE ---
%s
--- END ISSUE ---

Please generate a complete test that can be used to reproduce the issue.

The complete test should contain the following:
1. Necessary imports
2. Code to reproduce the issue described in the issue text
3. Print "Issue reproduced" if the outcome indicates that the issue is reproduced
4. Print "Issue resolved" if the outcome indicates that the issue has been successfully resolved
5. Print "Other issues" if the outcome indicates there are other issues with the source code

Here is an example:

'''python
from sqlfluff import lint

def test__rules__std_L060_raised() -> None:
    try:
        sql = "SELECT   IFNULL(NULL, 100),
            NVL(NULL,100);"
        result = lint(sql, rules=["L060"])
        assert len(result) == 2
    except:
        print("Other issues")
        return

    try:
        assert result[0]["description"] == "Use 'COALESCE' instead of 'IFNULL'."
        assert result[1]["description"] == "Use 'COALESCE' instead of 'NVL'."
        print("Issue resolved")
    except AssertionError:
        print("Issue reproduced")
        return

    return

test__rules__std_L060_raised()
'''

Please ensure the generated test reflects the issue described in the provided issue text.
The generated test should be able to be used to both reproduce the issue as well as to verify the issue has been fixed.
Wrap the complete test in '''python...'''.
`)

// TestReport is the tests.json artifact: the generated reproduction
// test alongside the problem it targets.
type TestReport struct {
	TestCode         string `json:"test_code"`
	ProblemStatement string `json:"problem_statement"`
}

// GenerateTestsStage produces a reproduction test for the bug. The
// test is recorded as an artifact only and never executed.
type GenerateTestsStage struct {
	client llm.Client
	store  *artifacts.Store
	opts   Options
}

// NewGenerateTestsStage creates the test generation stage.
func NewGenerateTestsStage(client llm.Client, store *artifacts.Store, opts Options) *GenerateTestsStage {
	return &GenerateTestsStage{client: client, store: store, opts: opts}
}

func (s *GenerateTestsStage) Name() string { return "generate_tests" }

func (s *GenerateTestsStage) Execute(ctx *Context) error {
	prompt := fmt.Sprintf(TestGenerationPrompt, ctx.BugDescription)
	response, err := complete(ctx.Ctx, s.client, s.opts, "test_generation", prompt, s.opts.Temperature)
	if err != nil {
		return err
	}
	if err := s.store.SaveTranscript("test_generation", "test code", response); err != nil {
		return err
	}

	code, ok := fencedCode(response)
	if !ok {
		log.Error().Msg("failed to parse test code from model response")
		code = ""
	}
	ctx.TestCode = code

	return s.store.SaveJSON("tests", "tests.json", TestReport{
		TestCode:         code,
		ProblemStatement: ctx.BugDescription,
	})
}
