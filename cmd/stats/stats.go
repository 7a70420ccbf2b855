// Package stats implements the queue inspection command.
package stats

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/formreach/formreach/cmd/common"
)

// Command returns the stats command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		Long:  `Prints aggregate task counts by status and by task type.`,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	stats, err := deps.Tasks.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}

	byType, err := deps.Tasks.CountByType(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read type counts: %w", err)
	}

	statusTable := table.NewWriter()
	statusTable.SetOutputMirror(os.Stdout)
	statusTable.AppendHeader(table.Row{"Status", "Tasks"})
	statusTable.AppendRows([]table.Row{
		{"pending", stats.TotalPending},
		{"processing", stats.TotalProcessing},
		{"completed", stats.TotalCompleted},
		{"failed", stats.TotalFailed},
	})
	statusTable.AppendFooter(table.Row{
		"total",
		stats.TotalPending + stats.TotalProcessing + stats.TotalCompleted + stats.TotalFailed,
	})
	statusTable.Render()

	if len(byType) > 0 {
		typeTable := table.NewWriter()
		typeTable.SetOutputMirror(os.Stdout)
		typeTable.AppendHeader(table.Row{"Task Type", "Tasks"})
		for taskType, count := range byType {
			typeTable.AppendRow(table.Row{taskType, count})
		}
		typeTable.SortBy([]table.SortBy{{Name: "Task Type", Mode: table.Asc}})
		typeTable.Render()
	}

	return nil
}
