package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
)

var tickNow string

var tickCmd = &cobra.Command{
	Use:   "tick <project-id>",
	Short: "Run one lifecycle pass over a project",
	Long: `Applies the date-driven status transitions and the completion
rollup for a single project, then prints what changed.

By default the pass runs at the current instant. Use --now to evaluate
the project at another point in time:

  taskflow tick 4f7c... --now 2026-09-01T00:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q: %w", args[0], err)
		}

		var now time.Time
		if tickNow != "" {
			now, err = time.Parse(time.RFC3339, tickNow)
			if err != nil {
				return fmt.Errorf("invalid --now value %q: %w", tickNow, err)
			}
		}

		ctx := cmd.Context()
		c, err := getContainer(ctx)
		if err != nil {
			return err
		}

		result, err := c.RunTickHandler.Handle(ctx, commands.RunTickCommand{
			ProjectID: projectID,
			Now:       now,
		})
		if err != nil {
			return err
		}

		if result.Changes == 0 {
			fmt.Println("No status changes.")
		} else {
			fmt.Printf("%d status change(s) applied.\n", result.Changes)
		}
		if result.SkippedOrphans > 0 {
			fmt.Printf("%d orphaned item(s) skipped.\n", result.SkippedOrphans)
		}
		return nil
	},
}

func init() {
	tickCmd.Flags().StringVar(&tickNow, "now", "", "evaluate at this RFC3339 instant instead of the current time")
	rootCmd.AddCommand(tickCmd)
}
