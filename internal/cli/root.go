// Package cli implements autofixctl, the operator command line for the
// autofix service.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/pyautofix/internal/config"
)

var version = "dev"

// SetVersion sets the version reported by `autofixctl version`.
func SetVersion(v string) {
	version = v
}

// loadConfig is replaced in tests.
var loadConfig = config.Load

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "autofixctl",
	Short: "Operate the Python autofix GitHub App",
	Long: `autofixctl inspects and manages a pyautofix deployment.

It reads the same PYAUTOFIX_* environment variables as the server. Commands
that talk to GitHub authenticate as the App installation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "usage database path (default $PYAUTOFIX_DB_PATH)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(settingsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the autofixctl version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "autofixctl "+version)
	},
}

func configFor(ctx context.Context) (*config.Config, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}
