package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jxucoder/PatchPilot/internal/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long: `Inspect runs recorded by the run and serve commands.

  patchpilot runs list        List runs, newest first
  patchpilot runs show <id>   Show one run, including its patch`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one run, including its patch",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// openRunStore opens the local run registry. No provider credentials are
// needed to inspect it.
func openRunStore() (*runstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return runstore.NewStore(cfg.DatabasePath)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tDESCRIPTION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.CreatedAt.Local().Format("2006-01-02 15:04"), shorten(r.BugDescription, 60))
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s not found", args[0])
	}

	fmt.Printf("ID:          %s\n", run.ID)
	fmt.Printf("Status:      %s\n", run.Status)
	fmt.Printf("Model:       %s\n", run.Model)
	fmt.Printf("Project:     %s\n", run.ProjectDir)
	fmt.Printf("Created:     %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Description: %s\n", run.BugDescription)
	if run.Error != "" {
		fmt.Printf("Error:       %s\n", run.Error)
	}
	if run.Patch != "" {
		fmt.Printf("\n%s", run.Patch)
	}
	return nil
}

// shorten trims s to at most maxLen runes for table display.
func shorten(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
