package monitoring

import (
	"context"
	"fmt"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// AlertsManager hands out verifiers for the alerts endpoint of a system.
type AlertsManager struct {
	logger ports.Logger
}

var _ ports.MonitoringManager = (*AlertsManager)(nil)

// NewAlertsManager creates a manager. logger may be nil.
func NewAlertsManager(logger ports.Logger) *AlertsManager {
	return &AlertsManager{logger: logger}
}

// Ensure returns a verifier for the alerts endpoint described by opts.
func (m *AlertsManager) Ensure(ctx context.Context, system *domain.ManagedSystem, opts ports.ConnectOptions) (ports.MonitoringVerifier, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare alerts client for system %s: %w", system.ID, err)
	}
	if m.logger != nil {
		m.logger.Debug(ctx, "alerts client ready",
			ports.Attr("system_id", system.ID),
			ports.Attr("address", opts.Address()))
	}
	return &alertsVerifier{client: c}, nil
}

type alertsVerifier struct {
	client *client
}

// VerifyCredentials lists the active alerts.
func (v *alertsVerifier) VerifyCredentials(ctx context.Context) error {
	if _, err := v.client.api.Alerts(ctx); err != nil {
		return v.client.classify(err)
	}
	return nil
}
