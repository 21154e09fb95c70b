package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/adapters/secondary/config"
	"github.com/sufield/clusterauth/internal/adapters/secondary/kubernetes"
	"github.com/sufield/clusterauth/internal/core/application"
	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/services"
)

// authenticationReport describes one completed authentication without its secret.
type authenticationReport struct {
	AuthType  string `json:"authtype" yaml:"authtype"`
	HasSecret bool   `json:"has_secret" yaml:"has_secret"`
	Unchanged bool   `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
}

func newReplicateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Complete the authentication list of a create or edit request",
		Long: `Complete the authentication list submitted for a managed cluster.

In create mode the bearer secret is copied to every metrics and alerting endpoint
that has no secret of its own. In edit mode the configuration is treated as an
update of the system described by --previous: secrets that were not resubmitted
are kept.

Examples:
  clusterauth replicate --mode create --config new.yaml
  clusterauth replicate --mode edit --config update.yaml --previous stored.yaml`,
		Args: cobra.NoArgs,
		RunE: runReplicate,
	}
	cmd.Flags().String("mode", "create", "Replication mode: create or edit")
	cmd.Flags().String("previous", "", "Configuration of the stored system (edit mode)")
	_ = cmd.MarkFlagFilename("previous", "yaml", "yml")
	return cmd
}

func runReplicate(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")
	previous, _ := cmd.Flags().GetString("previous")
	configPath, _ := cmd.Flags().GetString("config")

	var completed []domain.Authentication
	switch mode {
	case "create":
		cfg, err := config.NewLoader().Load(cmd.Context(), configPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		completed, err = services.NewAuthenticationReplicator().ReplicateForCreate(cfg.System.Endpoints, cfg.System.Authentications)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
	case "edit":
		if previous == "" {
			return fmt.Errorf("%w: --previous is required in edit mode", ErrUsage)
		}
		completed, err = replicateEdit(cmd, configPath, previous)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unsupported mode %q, use 'create' or 'edit'", ErrUsage, mode)
	}

	reports := make([]authenticationReport, len(completed))
	for i, a := range completed {
		reports[i] = authenticationReport{AuthType: string(a.AuthType), HasSecret: a.HasSecret(), Unchanged: a.Unchanged}
	}
	return render(cmd.OutOrStdout(), format, reports, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "AUTHTYPE\tSECRET\tUNCHANGED")
		for _, r := range reports {
			fmt.Fprintf(tw, "%s\t%t\t%t\n", r.AuthType, r.HasSecret, r.Unchanged)
		}
		return tw.Flush()
	})
}

func replicateEdit(cmd *cobra.Command, updatePath, storedPath string) ([]domain.Authentication, error) {
	loader := config.NewLoader()
	stored, err := loader.Load(cmd.Context(), storedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	update, err := loader.Load(cmd.Context(), updatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	system, err := application.CreateManagedSystem(stored.System.ID, stored.System.Name, stored.System.Endpoints, stored.System.Authentications)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	manager, err := application.NewClusterManager(system, application.Dependencies{Connector: kubernetes.NewConnector()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	_, completed, err := manager.EditWithParams(update.System.Endpoints, update.System.Authentications)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return completed, nil
}
