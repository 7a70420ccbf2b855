// Package process implements the one-shot batch command: claim and work
// through queued tasks until a budget runs out, then exit.
package process

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/formreach/formreach/cmd/common"
	"github.com/formreach/formreach/internal/logger"
)

var (
	maxTasks   int
	maxSeconds int
)

// Command returns the process command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one budget-bounded batch of queued tasks",
		Long: `Claims pending tasks one at a time and drives each to a terminal state,
stopping when the task-count or wall-clock budget is exhausted or the queue
drains. Safe to run from several processes at once.`,
		RunE: run,
	}

	cmd.Flags().IntVar(&maxTasks, "max-tasks", 0, "maximum tasks this invocation may process (0 = configured default)")
	cmd.Flags().IntVar(&maxSeconds, "max-seconds", 0, "wall-clock budget in seconds (0 = configured default)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	report, runErr := deps.Processor.Run(
		cmd.Context(), maxTasks, time.Duration(maxSeconds)*time.Second,
	)
	if runErr != nil {
		deps.Logger.Error("batch aborted",
			logger.Int("tasks_processed", report.TasksProcessed),
			logger.Error(runErr),
		)
		return fmt.Errorf("batch aborted: %w", runErr)
	}

	fmt.Printf("processed %d tasks (%d failed) in %s\n",
		report.TasksProcessed, report.TasksFailed, report.Elapsed.Round(time.Millisecond))

	return nil
}
