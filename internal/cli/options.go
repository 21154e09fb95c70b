package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/ports"
	"github.com/sufield/clusterauth/internal/core/services"
)

// optionsReport is the printable form of ports.ConnectOptions. Secrets are
// reported as present or absent only.
type optionsReport struct {
	Role        string `json:"role" yaml:"role"`
	URL         string `json:"url" yaml:"url"`
	APIVersion  string `json:"api_version" yaml:"api_version"`
	VerifyMode  string `json:"verify_mode" yaml:"verify_mode"`
	CustomCA    bool   `json:"custom_ca" yaml:"custom_ca"`
	Bearer      bool   `json:"bearer" yaml:"bearer"`
	BasicAuth   bool   `json:"basic_auth" yaml:"basic_auth"`
	HTTPProxy   string `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	OpenTimeout string `json:"open_timeout" yaml:"open_timeout"`
	ReadTimeout string `json:"read_timeout" yaml:"read_timeout"`
}

func newOptionsReport(o ports.ConnectOptions) optionsReport {
	return optionsReport{
		Role:        string(o.Role),
		URL:         o.URL().String(),
		APIVersion:  o.APIVersion,
		VerifyMode:  o.SSL.VerifyMode.String(),
		CustomCA:    o.SSL.CAData != "",
		Bearer:      o.Bearer != "",
		BasicAuth:   o.Username != "",
		HTTPProxy:   RedactString(o.HTTPProxy),
		OpenTimeout: o.OpenTimeout.String(),
		ReadTimeout: o.ReadTimeout.String(),
	}
}

func newOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the connection options for an endpoint",
		Long: `Print the connection options clusterauth would use, without connecting.

Examples:
  clusterauth options
  clusterauth options --role prometheus --output yaml
  clusterauth options --service-catalog`,
		Args: cobra.NoArgs,
		RunE: runOptions,
	}
	cmd.Flags().StringP("role", "r", "", "Endpoint role whose host and secret are used")
	cmd.Flags().Bool("service-catalog", false, "Target the service catalog API group")
	return cmd
}

func runOptions(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	roleFlag, _ := cmd.Flags().GetString("role")
	catalog, _ := cmd.Flags().GetBool("service-catalog")

	role, err := domain.ParseRole(roleFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	return withEnvironment(cmd, func(env *environment) error {
		system := env.manager.System()

		var opts ports.ConnectOptions
		switch {
		case catalog:
			opts, err = env.manager.ConnectOptions(services.ConnectOverrides{
				Path:       services.ServiceCatalogAPIPath,
				APIVersion: services.ServiceCatalogAPIVersion,
			})
		case role == domain.RoleDefault:
			opts, err = env.manager.ConnectOptions(services.ConnectOverrides{})
		default:
			opts, err = env.builder.BuildForEndpoint(system, role)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}

		report := newOptionsReport(opts)
		return render(cmd.OutOrStdout(), format, report, func(w io.Writer) error {
			fmt.Fprintf(w, "Role: %s\n", report.Role)
			fmt.Fprintf(w, "URL: %s\n", report.URL)
			fmt.Fprintf(w, "API Version: %s\n", report.APIVersion)
			fmt.Fprintf(w, "Verify Mode: %s\n", report.VerifyMode)
			fmt.Fprintf(w, "Custom CA: %t\n", report.CustomCA)
			fmt.Fprintf(w, "Bearer: %t\n", report.Bearer)
			fmt.Fprintf(w, "Basic Auth: %t\n", report.BasicAuth)
			if report.HTTPProxy != "" {
				fmt.Fprintf(w, "HTTP Proxy: %s\n", report.HTTPProxy)
			}
			fmt.Fprintf(w, "Timeouts: open=%s read=%s\n", report.OpenTimeout, report.ReadTimeout)
			return nil
		})
	})
}
