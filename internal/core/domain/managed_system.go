package domain

import "errors"

// ManagedSystem is the aggregate root of one managed cluster: its endpoints,
// its authentications and its proxy settings.
type ManagedSystem struct {
	ID              string
	Name            string
	Zone            string
	HTTPProxy       string
	Endpoints       *EndpointRegistry
	Authentications AuthenticationSet
}

// NewManagedSystem validates the pairing rules and builds a system snapshot.
func NewManagedSystem(id, name string, endpoints []Endpoint, auths []Authentication) (*ManagedSystem, error) {
	registry, err := NewEndpointRegistry(endpoints...)
	if err != nil {
		return nil, err
	}
	set, err := NewAuthenticationSet(auths...)
	if err != nil {
		return nil, err
	}
	if len(endpoints) > 0 && !registry.Has(RoleDefault) {
		return nil, errors.New("a default endpoint is required")
	}
	return &ManagedSystem{
		ID:              id,
		Name:            name,
		Endpoints:       registry,
		Authentications: set,
	}, nil
}

// Address returns the primary endpoint hostname.
func (m *ManagedSystem) Address() string {
	e, _ := m.Endpoints.Default()
	return e.Hostname
}

// Port returns the primary endpoint port, defaulting to DefaultAPIPort.
func (m *ManagedSystem) Port() int {
	e, _ := m.Endpoints.Default()
	return e.EffectivePort()
}

// SecretFor resolves the secret used by an endpoint role. Roles without their own
// authentication fall back to the bearer secret.
func (m *ManagedSystem) SecretFor(role Role) string {
	if tok := m.Authentications.Token(role.AuthType()); tok != "" {
		return tok
	}
	if role.OwnsAuthentication() {
		return ""
	}
	return m.Authentications.Token(AuthBearer)
}

// SupportsMetrics reports whether a metrics endpoint is declared.
func (m *ManagedSystem) SupportsMetrics() bool {
	return m.Endpoints.Has(RolePrometheus) || m.Endpoints.Has(RoleHawkular)
}

// MonitoringManagerNeeded reports whether alerting is configured.
func (m *ManagedSystem) MonitoringManagerNeeded() bool {
	return m.Endpoints.Has(RolePrometheusAlerts)
}

// AuthenticationsToValidate lists the auth types a full verification pass checks.
func (m *ManagedSystem) AuthenticationsToValidate() []AuthType {
	out := []AuthType{AuthBearer}
	for _, t := range []AuthType{AuthHawkular, AuthPrometheus, AuthPrometheusAlerts, AuthKubevirt} {
		if m.Authentications.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// WithAuthentications returns a copy of m carrying a different authentication set.
func (m *ManagedSystem) WithAuthentications(set AuthenticationSet) *ManagedSystem {
	next := *m
	next.Authentications = set
	return &next
}

// WithEndpoints returns a copy of m carrying a different endpoint registry.
func (m *ManagedSystem) WithEndpoints(r *EndpointRegistry) *ManagedSystem {
	next := *m
	next.Endpoints = r
	return &next
}
