package ports

import (
	"context"

	"github.com/sufield/clusterauth/internal/core/domain"
)

// MetricsProbe performs one authenticated request against a metrics endpoint.
// A nil error means the credentials were accepted.
type MetricsProbe interface {
	Probe(ctx context.Context, endpoint domain.Endpoint, opts ConnectOptions) error
}

// MonitoringVerifier verifies the credentials of an alerting subsystem.
type MonitoringVerifier interface {
	VerifyCredentials(ctx context.Context) error
}

// MonitoringManager locates, creating if needed, the alerting companion of a
// managed system.
type MonitoringManager interface {
	Ensure(ctx context.Context, system *domain.ManagedSystem, opts ConnectOptions) (MonitoringVerifier, error)
}
