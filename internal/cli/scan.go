package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/services"
)

type scanReport struct {
	Target string `json:"target" yaml:"target"`
	State  string `json:"state" yaml:"state"`
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Request a container image scan",
		Long: `Request a container image scan on the managed cluster.

The request raises a policy event; the scan job is only created once the policy
evaluator allows it (see 'clusterauth resolve'). Deferred requests need the redis
policy backend so that a later process can resolve them.

Example:
  clusterauth scan --id 7 --name nginx:1.25 --user admin`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}
	cmd.Flags().String("class", "ContainerImage", "Class of the scanned entity")
	cmd.Flags().String("id", "", "ID of the scanned entity")
	cmd.Flags().String("name", "", "Display name of the scanned entity")
	cmd.Flags().String("user", "", "User requesting the scan")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	class, _ := cmd.Flags().GetString("class")
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	user, _ := cmd.Flags().GetString("user")

	return withEnvironment(cmd, func(env *environment) error {
		if !env.persistent() {
			env.logger.Warn(cmd.Context(), "memory policy backend: the request cannot be resolved by another process")
		}

		target := domain.EntityRef{Class: class, ID: id, Name: name}
		result, err := env.manager.ScanJobCreate(cmd.Context(), target, user)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}

		state := "deferred"
		if result == services.GuardExecuted {
			state = "executed"
		}
		report := scanReport{Target: fmt.Sprintf("%s/%s", class, id), State: state}
		return render(cmd.OutOrStdout(), format, report, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Scan of %s %s\n", report.Target, report.State)
			return err
		})
	})
}
