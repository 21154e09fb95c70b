// clusterauth verifies and manages the credentials of container cluster endpoints.
//
// Usage:
//
//	clusterauth verify --config cluster.yaml
//	clusterauth options --role prometheus
//	clusterauth --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sufield/clusterauth/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.RedactError(err))
	}
	os.Exit(cli.ExitCode(err))
}
