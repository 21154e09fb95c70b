package services

import (
	"time"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// Kubernetes API defaults.
const (
	DefaultAPIPath           = "/api"
	DefaultAPIVersion        = "v1"
	ServiceCatalogAPIPath    = "/apis/servicecatalog.k8s.io"
	ServiceCatalogAPIVersion = "v1beta1"
)

// ProviderSettings are process-wide connection settings.
type ProviderSettings struct {
	HTTPProxy   string
	OpenTimeout time.Duration
	ReadTimeout time.Duration
}

// DefaultProviderSettings returns the settings used when none are configured.
func DefaultProviderSettings() ProviderSettings {
	return ProviderSettings{
		OpenTimeout: 60 * time.Second,
		ReadTimeout: 60 * time.Second,
	}
}

// ConnectOverrides lets callers replace any part of the derived options.
// Role selects the endpoint whose security protocol applies.
type ConnectOverrides struct {
	Role       domain.Role
	Host       string
	Port       int
	AuthType   domain.AuthType
	Bearer     string
	Username   string
	Password   string
	SSL        *domain.SSLPolicy
	HTTPProxy  string
	Path       string
	APIVersion string
}

// ConnectOptionsBuilder assembles ConnectOptions from a system snapshot.
type ConnectOptionsBuilder struct {
	resolver *SSLPolicyResolver
	settings ProviderSettings
}

// NewConnectOptionsBuilder creates a builder.
func NewConnectOptionsBuilder(resolver *SSLPolicyResolver, settings ProviderSettings) *ConnectOptionsBuilder {
	if resolver == nil {
		resolver = NewSSLPolicyResolver()
	}
	return &ConnectOptionsBuilder{resolver: resolver, settings: settings}
}

// Build derives the options for one endpoint. Host and port default to the primary
// endpoint; the SSL policy comes from the target endpoint.
func (b *ConnectOptionsBuilder) Build(system *domain.ManagedSystem, o ConnectOverrides) (ports.ConnectOptions, error) {
	role := o.Role
	if role == "" {
		role = domain.RoleDefault
	}

	opts := ports.ConnectOptions{
		Role:        role,
		Host:        o.Host,
		Port:        o.Port,
		Path:        o.Path,
		APIVersion:  o.APIVersion,
		Username:    o.Username,
		Password:    o.Password,
		OpenTimeout: b.settings.OpenTimeout,
		ReadTimeout: b.settings.ReadTimeout,
	}
	if opts.Host == "" {
		opts.Host = system.Address()
	}
	if opts.Host == "" {
		return ports.ConnectOptions{}, errors.NewDomainError(errors.ErrMissingEndpoint, nil)
	}
	if opts.Port == 0 {
		opts.Port = system.Port()
	}
	if opts.Path == "" {
		opts.Path = DefaultAPIPath
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}

	opts.Bearer = o.Bearer
	if opts.Bearer == "" {
		authType := o.AuthType
		if authType == "" {
			authType = domain.AuthBearer
		}
		opts.Bearer = system.Authentications.Token(authType)
	}
	if opts.Username == "" && opts.Password == "" {
		if pw, ok := system.Authentications[domain.AuthPassword]; ok {
			opts.Username, opts.Password = pw.UserID, pw.Password
		}
	}

	if o.SSL != nil {
		opts.SSL = *o.SSL
	} else if target, ok := system.Endpoints.Lookup(role); ok {
		opts.SSL = b.resolver.ForEndpoint(&target)
	} else {
		opts.SSL = b.resolver.ForEndpoint(nil)
	}

	switch {
	case o.HTTPProxy != "":
		opts.HTTPProxy = o.HTTPProxy
	case system.HTTPProxy != "":
		opts.HTTPProxy = system.HTTPProxy
	default:
		opts.HTTPProxy = b.settings.HTTPProxy
	}

	return opts, nil
}

// BuildForEndpoint derives options that target the endpoint of role itself,
// using the secret paired with that role.
func (b *ConnectOptionsBuilder) BuildForEndpoint(system *domain.ManagedSystem, role domain.Role) (ports.ConnectOptions, error) {
	e, ok := system.Endpoints.Lookup(role)
	if !ok {
		return ports.ConnectOptions{}, errors.NewDomainError(errors.ErrMissingEndpoint, nil)
	}
	return b.Build(system, ConnectOverrides{
		Role:     role,
		Host:     e.Hostname,
		Port:     e.EffectivePort(),
		AuthType: role.AuthType(),
		Bearer:   system.SecretFor(role),
	})
}
