// Package cmd implements the command-line interface for the outreach engine.
// It provides the root command and subcommands for queue processing, serving
// the HTTP API, migrations, seeding, and queue inspection.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/formreach/formreach/cmd/migrate"
	"github.com/formreach/formreach/cmd/process"
	"github.com/formreach/formreach/cmd/seed"
	"github.com/formreach/formreach/cmd/serve"
	"github.com/formreach/formreach/cmd/stats"
	"github.com/formreach/formreach/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "formreach",
		Short: "Bulk website-form outreach engine",
		Long: `An outbound submission engine that analyzes target domains, crawls their
pages for submittable forms, and works through the resulting task queue in
budget-bounded batches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := config.InitializeViper(cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if debug {
		viper.Set("logger.level", "debug")
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("formreach version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(process.Command())
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(seed.Command())
	rootCmd.AddCommand(stats.Command())
}
