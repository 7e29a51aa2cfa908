package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo project with phases, tasks, and worker assignments",
	Long: `Seeds a small demo hierarchy: one project, two phases, four tasks,
and a handful of worker assignments. Useful for trying out tick, cancel,
and status without building a project by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getContainer(ctx)
		if err != nil {
			return err
		}

		result, err := c.SeedDemoHandler.Handle(ctx, commands.SeedDemoCommand{})
		if err != nil {
			return err
		}

		fmt.Printf("Seeded demo project %s\n", result.ProjectID)
		for _, phaseID := range result.PhaseIDs {
			fmt.Printf("  phase %s\n", phaseID)
		}
		for _, taskID := range result.TaskIDs {
			fmt.Printf("  task  %s\n", taskID)
		}
		fmt.Printf("\nNext: taskflow tick %s\n", result.ProjectID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
