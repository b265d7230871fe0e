// PatchPilot
//
// An LLM-assisted bug fixer. Describe the bug in plain language, point it
// at a project directory, get a patch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jxucoder/PatchPilot/internal/config"
	"github.com/jxucoder/PatchPilot/internal/logging"
)

var (
	version   = "dev"
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "patchpilot",
	Short: "PatchPilot - LLM Bug Fixer",
	Long: `PatchPilot locates and fixes bugs from a natural language description.
Describe the bug, point it at a project directory, get a patch.

  patchpilot config setup                      Set up provider credentials (first time)
  patchpilot run --bug-description "..."       Generate a patch for a bug
  patchpilot runs list                         List recorded runs
  patchpilot runs show <id>                    Show a run and its patch
  patchpilot serve                             Start the HTTP API server
  patchpilot swebench --dataset data.jsonl     Batch-run a SWE-bench export`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (full prompts and responses)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and initializes logging. Stdout is
// reserved for patches; all logs go to stderr.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Debug = true
	}
	logging.Setup(cfg.Debug)
	return cfg, nil
}
