package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/services"
)

// verificationReport is the printable result of one role.
type verificationReport struct {
	Role      string `json:"role" yaml:"role"`
	Outcome   string `json:"outcome" yaml:"outcome"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty" yaml:"retryable,omitempty"`
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the credentials of a managed cluster",
		Long: `Verify the credentials configured for a managed cluster.

Without flags the primary API endpoint is verified. --role selects one endpoint
role, --all verifies every configured authentication, and --submitted checks the
configuration as unsaved form data.

Examples:
  clusterauth verify --config cluster.yaml
  clusterauth verify --role prometheus
  clusterauth verify --all --output json`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}

	cmd.Flags().StringP("role", "r", "", "Endpoint role to verify (default, kubevirt, hawkular, prometheus, prometheus_alerts)")
	cmd.Flags().Bool("all", false, "Verify every configured authentication")
	cmd.Flags().Bool("submitted", false, "Verify the first endpoint as unsaved form data")
	cmd.MarkFlagsMutuallyExclusive("role", "all", "submitted")

	_ = cmd.RegisterFlagCompletionFunc("role", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		roles := make([]string, 0, len(domain.KnownRoles()))
		for _, r := range domain.KnownRoles() {
			roles = append(roles, string(r))
		}
		return roles, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	roleFlag, _ := cmd.Flags().GetString("role")
	all, _ := cmd.Flags().GetBool("all")
	submitted, _ := cmd.Flags().GetBool("submitted")

	return withEnvironment(cmd, func(env *environment) error {
		ctx := cmd.Context()
		var results []services.VerificationResult

		switch {
		case all:
			results = env.manager.VerifyAll(ctx)
		case submitted:
			outcome, err := env.verifier.VerifySubmitted(ctx, services.SubmittedCredentials{
				SystemID:        env.cfg.System.ID,
				Endpoints:       env.cfg.System.Endpoints,
				Authentications: env.cfg.System.Authentications,
			})
			results = []services.VerificationResult{{Role: env.cfg.System.Endpoints[0].Role, Outcome: outcome, Err: err}}
		default:
			role := domain.Role(roleFlag)
			outcome, err := env.manager.VerifyCredentials(ctx, role)
			if role == "" {
				role = domain.RoleDefault
			}
			results = []services.VerificationResult{{Role: role, Outcome: outcome, Err: err}}
		}

		reports := make([]verificationReport, len(results))
		for i, r := range results {
			reports[i] = verificationReport{Role: string(r.Role), Outcome: r.Outcome.String()}
			if r.Err != nil {
				reports[i].Error = RedactError(r.Err)
				reports[i].Retryable = errors.IsRetryable(r.Err)
			}
		}

		if err := render(cmd.OutOrStdout(), format, reports, func(w io.Writer) error {
			return writeVerificationTable(w, reports)
		}); err != nil {
			return err
		}
		return verificationError(results)
	})
}

func writeVerificationTable(w io.Writer, reports []verificationReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tOUTCOME\tERROR")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Role, r.Outcome, r.Error)
	}
	return tw.Flush()
}

// verificationError summarises failed roles. Credential rejections take
// precedence over connectivity failures.
func verificationError(results []services.VerificationResult) error {
	var failed []error
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	joined := stderrors.Join(failed...)
	switch {
	case stderrors.Is(joined, errors.ErrInvalidCredentials):
		return fmt.Errorf("%w: %d of %d verifications failed", ErrAuth, len(failed), len(results))
	case stderrors.Is(joined, errors.ErrUnsupportedRole):
		return fmt.Errorf("%w: %s", ErrUsage, RedactError(joined))
	case stderrors.Is(joined, errors.ErrInvalidCertificateAuthority):
		return fmt.Errorf("%w: %s", ErrConfig, RedactError(joined))
	default:
		return fmt.Errorf("%w: %d of %d verifications failed", ErrRuntime, len(failed), len(results))
	}
}
