package main

import (
	"github.com/spf13/cobra"

	patchpilot "github.com/jxucoder/PatchPilot"
	"github.com/jxucoder/PatchPilot/internal/swebench"
)

var (
	swebenchDataset     string
	swebenchInstanceID  string
	swebenchOutputDir   string
	swebenchProjectsDir string
)

var swebenchCmd = &cobra.Command{
	Use:   "swebench",
	Short: "Batch-run the pipeline over a SWE-bench dataset export",
	Long: `Run the bug-fixing pipeline over every instance of a SWE-bench JSONL
export. Each repository is cloned under --projects, checked out at its
base commit, and prediction files are written under --output/<instance_id>/.

Instances whose output directory already exists are skipped, so an
interrupted batch picks up where it left off.`,
	RunE: runSwebench,
}

func init() {
	swebenchCmd.Flags().StringVar(&swebenchDataset, "dataset", "", "Path to a SWE-bench JSONL export (required)")
	swebenchCmd.Flags().StringVar(&swebenchInstanceID, "instance-id", "", "Process a single instance and stop on its error")
	swebenchCmd.Flags().StringVar(&swebenchOutputDir, "output", "swebench_outputs", "Directory for per-instance prediction files")
	swebenchCmd.Flags().StringVar(&swebenchProjectsDir, "projects", "projects", "Directory for cloned repositories")
	swebenchCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(swebenchCmd)
}

func runSwebench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := patchpilot.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}

	h := swebench.New(app, cfg.Model, swebench.Options{
		DatasetPath: swebenchDataset,
		OutputDir:   swebenchOutputDir,
		ProjectsDir: swebenchProjectsDir,
		InstanceID:  swebenchInstanceID,
	})
	return h.Run(cmd.Context())
}
