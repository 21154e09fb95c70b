package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X github.com/sufield/clusterauth/internal/cli.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
	BuildUser = "unknown"
	BuildHost = "unknown"
)

// VersionInfo contains detailed version and build information
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	BuildUser string `json:"build_user" yaml:"build_user"`
	BuildHost string `json:"build_host" yaml:"build_host"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GOOS      string `json:"os" yaml:"os"`
	GOARCH    string `json:"arch" yaml:"arch"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		BuildUser: BuildUser,
		BuildHost: BuildHost,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display detailed version and build information for the clusterauth CLI.",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	info := GetVersionInfo()
	return render(cmd.OutOrStdout(), format, info, func(w io.Writer) error {
		fmt.Fprintf(w, "Version: %s\n", info.Version)
		fmt.Fprintf(w, "Commit: %s\n", info.Commit)
		fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
		fmt.Fprintf(w, "Build User: %s\n", info.BuildUser)
		fmt.Fprintf(w, "Build Host: %s\n", info.BuildHost)
		fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
		fmt.Fprintf(w, "OS/Arch: %s/%s\n", info.GOOS, info.GOARCH)
		return nil
	})
}
