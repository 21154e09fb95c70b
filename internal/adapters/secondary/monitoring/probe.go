package monitoring

import (
	"context"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// BuildInfoProbe verifies a metrics endpoint by reading its build information,
// which requires an authenticated request.
type BuildInfoProbe struct{}

var _ ports.MetricsProbe = BuildInfoProbe{}

// Probe queries /api/v1/status/buildinfo on the endpoint.
func (BuildInfoProbe) Probe(ctx context.Context, _ domain.Endpoint, opts ports.ConnectOptions) error {
	c, err := newClient(opts)
	if err != nil {
		return err
	}
	if _, err := c.api.Buildinfo(ctx); err != nil {
		return c.classify(err)
	}
	return nil
}
