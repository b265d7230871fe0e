package main

import (
	"fmt"

	"github.com/spf13/cobra"

	patchpilot "github.com/jxucoder/PatchPilot"
)

// defaultBugDescription matches the seeded bug in the bundled test-app.
const defaultBugDescription = "There is a bug in the get_cart_total endpoint where it randomly skips items during total calculation."

var (
	runBugDescription string
	runProjectDir     string
	runInstanceID     string
	runPruneFolders   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Locate a bug and generate a patch",
	Long: `Run the bug-fixing pipeline against a project directory.

The bug description and project directory default to the bundled demo app,
so a bare "patchpilot run" exercises the whole pipeline end to end. The
patch goes to stdout; logs and progress go to stderr.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBugDescription, "bug-description", defaultBugDescription, "Natural language description of the bug")
	runCmd.Flags().StringVar(&runProjectDir, "project-dir", "test-app", "Project directory to scan")
	runCmd.Flags().StringVar(&runInstanceID, "instance-id", "", "Identifier for the results directory (default: timestamp)")
	runCmd.Flags().BoolVar(&runPruneFolders, "prune-folders", false, "Prune irrelevant folders before locating files")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runPruneFolders {
		cfg.PruneFolders = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := patchpilot.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}

	patch, err := app.FindPatch(cmd.Context(), runBugDescription, runProjectDir, runInstanceID)
	if err != nil {
		return err
	}

	if patch == "" {
		fmt.Println("No patch was generated")
		return nil
	}
	fmt.Print(patch)
	return nil
}
