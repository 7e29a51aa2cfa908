package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a project or a phase",
}

var cancelProjectCmd = &cobra.Command{
	Use:   "project <project-id>",
	Short: "Cancel a project and everything under it",
	Long: `Cancels the project, all of its phases and tasks, and releases
every worker assigned anywhere in the project. Completed items are
cancelled as well; their completion instants are cleared.`,
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

		if err := c.CancelProjectHandler.Handle(ctx, commands.CancelProjectCommand{ProjectID: projectID}); err != nil {
			return err
		}

		fmt.Printf("Project %s cancelled.\n", projectID)
		return nil
	},
}

var cancelPhaseCmd = &cobra.Command{
	Use:   "phase <phase-id>",
	Short: "Cancel one phase and its tasks",
	Long: `Cancels a single phase and every task in it, and releases the
workers assigned to those tasks. The project and its other phases are
left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phaseID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid phase id %q: %w", args[0], err)
		}

		ctx := cmd.Context()
		c, err := getContainer(ctx)
		if err != nil {
			return err
		}

		if err := c.CancelPhaseHandler.Handle(ctx, commands.CancelPhaseCommand{PhaseID: phaseID}); err != nil {
			return err
		}

		fmt.Printf("Phase %s cancelled.\n", phaseID)
		return nil
	},
}

func init() {
	cancelCmd.AddCommand(cancelProjectCmd)
	cancelCmd.AddCommand(cancelPhaseCmd)
	rootCmd.AddCommand(cancelCmd)
}
