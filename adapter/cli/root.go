// Package cli implements the taskflow command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/taskflow-io/taskflow/internal/app"
)

var (
	verbose bool
	logger  *slog.Logger

	containerOnce sync.Once
	container     *app.Container
	containerErr  error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow - work status lifecycle engine",
	Long: `TaskFlow tracks projects, phases, and tasks through their work
status lifecycle. Statuses move with the calendar, completions roll up
from tasks to phases to the project, and cancellations cascade down.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command and releases the container
// afterwards.
func ExecuteContext(ctx context.Context) {
	if logger == nil {
		logger = slog.Default()
	}

	err := rootCmd.ExecuteContext(ctx)
	if container != nil {
		if closeErr := container.Close(); closeErr != nil {
			logger.Warn("failed to close container", "error", closeErr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// getContainer lazily initializes the shared application container. The CLI
// always uses the development wiring: local SQLite unless DATABASE_URL is
// set, in-process locks, no broker.
func getContainer(ctx context.Context) (*app.Container, error) {
	containerOnce.Do(func() {
		container, containerErr = app.NewDevelopmentContainer(ctx, logger)
	})
	return container, containerErr
}
