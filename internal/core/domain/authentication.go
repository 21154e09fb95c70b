package domain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// AuthType tags an authentication with the endpoint role it belongs to.
type AuthType string

const (
	AuthBearer           AuthType = "bearer"
	AuthKubevirt         AuthType = "kubevirt"
	AuthHawkular         AuthType = "hawkular"
	AuthPrometheus       AuthType = "prometheus"
	AuthPrometheusAlerts AuthType = "prometheus_alerts"
	AuthDefault          AuthType = "default"
	AuthPassword         AuthType = "password"
)

var supportedAuthTypes = []AuthType{
	AuthDefault,
	AuthPassword,
	AuthBearer,
	AuthHawkular,
	AuthPrometheus,
	AuthPrometheusAlerts,
	AuthKubevirt,
}

// DefaultAuthenticationType is the auth type used when none is requested.
const DefaultAuthenticationType = AuthBearer

// RequiredCredentialFields lists the fields a submitted authentication must carry.
// Every supported type is token based.
func RequiredCredentialFields(AuthType) []string {
	return []string{"auth_key"}
}

// SupportedAuthTypes returns every authentication type a managed cluster accepts.
func SupportedAuthTypes() []AuthType {
	out := make([]AuthType, len(supportedAuthTypes))
	copy(out, supportedAuthTypes)
	return out
}

// IsSupported reports whether the auth type is accepted.
func (a AuthType) IsSupported() bool {
	for _, s := range supportedAuthTypes {
		if a == s {
			return true
		}
	}
	return false
}

// String returns the auth type name.
func (a AuthType) String() string {
	return string(a)
}

// Authentication is a secret submitted for one auth type.
//
// AuthKey is write-only: it is never serialised back to clients.
// Unchanged marks a placeholder that keeps the stored secret as is.
type Authentication struct {
	AuthType  AuthType `mapstructure:"authtype" json:"authtype" yaml:"authtype" validate:"required,auth_type"`
	AuthKey   string   `mapstructure:"auth_key" json:"-" yaml:"-"`
	UserID    string   `mapstructure:"userid" json:"userid,omitempty" yaml:"userid,omitempty"`
	Password  string   `mapstructure:"password" json:"-" yaml:"-"`
	Unchanged bool     `mapstructure:"unchanged" json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
}

// HasSecret reports whether a secret value was submitted.
func (a Authentication) HasSecret() bool {
	return a.AuthKey != ""
}

// KeepsStored reports whether a carries no new secret: an explicit placeholder or
// an entry submitted without auth_key or password.
func (a Authentication) KeepsStored() bool {
	return a.Unchanged || (a.AuthKey == "" && a.Password == "")
}

// WithAuthType returns a copy of a carrying a different auth type.
func (a Authentication) WithAuthType(t AuthType) Authentication {
	a.AuthType = t
	return a
}

// FindAuthentication returns the first authentication of the given type.
func FindAuthentication(auths []Authentication, t AuthType) (Authentication, bool) {
	for _, a := range auths {
		if a.AuthType == t {
			return a, true
		}
	}
	return Authentication{}, false
}

// AuthenticationSet holds at most one authentication per auth type.
type AuthenticationSet map[AuthType]Authentication

// NewAuthenticationSet builds a set, rejecting duplicate auth types.
func NewAuthenticationSet(auths ...Authentication) (AuthenticationSet, error) {
	set := make(AuthenticationSet, len(auths))
	for _, a := range auths {
		if _, dup := set[a.AuthType]; dup {
			return nil, fmt.Errorf("duplicate authentication for authtype %q", a.AuthType)
		}
		set[a.AuthType] = a
	}
	return set, nil
}

// Has reports whether an authentication of type t exists.
func (s AuthenticationSet) Has(t AuthType) bool {
	_, ok := s[t]
	return ok
}

// Token returns the secret stored for t, or an empty string.
func (s AuthenticationSet) Token(t AuthType) string {
	return s[t].AuthKey
}

// List returns the authentications sorted by auth type.
func (s AuthenticationSet) List() []Authentication {
	out := make([]Authentication, 0, len(s))
	for _, a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthType < out[j].AuthType })
	return out
}

// Apply returns the set an update produces: exactly the submitted auth types,
// where entries without a new secret keep the one stored in s. A missing secret
// never clears a stored one; such entries with nothing stored are dropped.
func (s AuthenticationSet) Apply(submitted []Authentication) AuthenticationSet {
	out := make(AuthenticationSet, len(submitted))
	for _, a := range submitted {
		if a.KeepsStored() {
			if stored, ok := s[a.AuthType]; ok {
				out[a.AuthType] = stored
			}
			continue
		}
		out[a.AuthType] = a
	}
	return out
}

// AuthTypeDecodeHook normalises auth type strings while decoding configuration.
func AuthTypeDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(AuthType("")) {
			return data, nil
		}
		str, ok := data.(string)
		if !ok {
			return data, nil
		}
		return AuthType(strings.ToLower(strings.TrimSpace(str))), nil
	}
}

// Role returns the endpoint role an auth type verifies. bearer belongs to default.
func (a AuthType) Role() Role {
	if a == AuthBearer || a == AuthDefault {
		return RoleDefault
	}
	return Role(a)
}
