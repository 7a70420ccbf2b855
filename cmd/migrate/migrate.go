// Package migrate implements the schema migration command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formreach/formreach/cmd/common"
	"github.com/formreach/formreach/internal/database"
)

// Command returns the migrate command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Creates or updates the outreach tables. The migration is idempotent.`,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	if migrateErr := database.Migrate(cmd.Context(), deps.DB); migrateErr != nil {
		return fmt.Errorf("migration failed: %w", migrateErr)
	}

	fmt.Println("schema up to date")
	return nil
}
