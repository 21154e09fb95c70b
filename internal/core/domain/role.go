// Package domain contains the endpoint, authentication and policy models of a managed cluster.
package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Role is the functional category of an endpoint.
type Role string

const (
	RoleDefault          Role = "default"
	RoleKubevirt         Role = "kubevirt"
	RoleHawkular         Role = "hawkular"
	RolePrometheus       Role = "prometheus"
	RolePrometheusAlerts Role = "prometheus_alerts"
)

// knownRoles is ordered the way roles are presented and validated.
var knownRoles = []Role{
	RoleDefault,
	RoleHawkular,
	RolePrometheus,
	RolePrometheusAlerts,
	RoleKubevirt,
}

// Ports used when an endpoint does not declare one. Cluster APIs listen on
// DefaultAPIPort; metrics and alerting routes are plain HTTPS.
const (
	DefaultAPIPort   = 6443
	DefaultHTTPSPort = 443
)

// KnownRoles returns every supported endpoint role.
func KnownRoles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// ParseRole parses a role name. An empty string is the default role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return RoleDefault, nil
	}
	if !r.IsKnown() {
		return r, fmt.Errorf("unknown endpoint role %q", s)
	}
	return r, nil
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// IsKnown reports whether r is one of the supported roles.
func (r Role) IsKnown() bool {
	for _, k := range knownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// OwnsAuthentication reports whether the role carries its own independent secret
// instead of sharing the bearer secret.
func (r Role) OwnsAuthentication() bool {
	return r == RoleDefault || r == RoleKubevirt
}

// IsMetrics reports whether the role serves metrics.
func (r Role) IsMetrics() bool {
	return r == RoleHawkular || r == RolePrometheus
}

// DefaultPort returns the port assumed for an endpoint of this role.
func (r Role) DefaultPort() int {
	switch r {
	case RoleHawkular, RolePrometheus, RolePrometheusAlerts:
		return DefaultHTTPSPort
	default:
		return DefaultAPIPort
	}
}

// AuthType returns the authentication type paired with the role.
func (r Role) AuthType() AuthType {
	switch r {
	case RoleDefault:
		return AuthBearer
	case RoleKubevirt:
		return AuthKubevirt
	default:
		return AuthType(r)
	}
}

// RoleDecodeHook normalises role strings while decoding configuration.
func RoleDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(Role("")) {
			return data, nil
		}
		str, ok := data.(string)
		if !ok {
			return data, nil
		}
		return Role(strings.ToLower(strings.TrimSpace(str))), nil
	}
}
