// Package cli implements the clusterauth command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "clusterauth.yaml"

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clusterauth",
		Short: "Credential verification and connection management for container clusters",
		Long: `Credential verification and connection management for container clusters.

clusterauth verifies the secrets configured for each endpoint of a managed cluster,
prints the connection options it would use, completes authentication lists on create
and edit, and gates container image scans behind policy decisions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", defaultConfigFile, "Path to configuration file")
	flags.StringP("output", "o", FormatText, "Output format: text, json or yaml")
	flags.String("log-level", "", "Override the configured log level")
	flags.String("metrics-file", "", "Write Prometheus metrics in text format to this file on exit")
	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")

	rootCmd.AddCommand(
		newVerifyCmd(),
		newReplicateCmd(),
		newOptionsCmd(),
		newScanCmd(),
		newResolveCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return fmt.Errorf("failed to execute command: %w", err)
	}
	return nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("%w: failed to get output flag: %v", ErrUsage, err)
	}
	return format, nil
}
