package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/queries"
	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
)

var statusOrder = []domain.WorkStatus{
	domain.StatusPending,
	domain.StatusOnGoing,
	domain.StatusDelayed,
	domain.StatusCompleted,
	domain.StatusCancelled,
}

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a project's status breakdown",
	Long: `Prints the project's own status and how its phases and tasks are
distributed across the work statuses. The counts are computed from the
stored hierarchy at call time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q: %w", args[0], err)
		}

		ctx := cmd.Context()
		c, err := getContainer(ctx)
		if err != nil {
			return err
		}

		summary, err := c.StatusSummaryHandler.Handle(ctx, queries.ProjectStatusSummaryQuery{ProjectID: projectID})
		if err != nil {
			return err
		}

		fmt.Printf("Project %s: %s\n", summary.ProjectID, summary.ProjectStatus)
		printCounts("Phases", summary.PhaseCounts)
		printCounts("Tasks", summary.TaskCounts)
		return nil
	},
}

func printCounts(label string, counts map[domain.WorkStatus]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("\n%s (%d):\n", label, total)
	for _, status := range statusOrder {
		if n := counts[status]; n > 0 {
			fmt.Printf("  %-10s %d\n", status, n)
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
