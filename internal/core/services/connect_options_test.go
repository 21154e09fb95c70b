package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/clusterauth/internal/core/domain"
	domainerrors "github.com/sufield/clusterauth/internal/core/errors"
)

func TestConnectOptionsBuilder_Defaults(t *testing.T) {
	settings := ProviderSettings{HTTPProxy: "http://proxy:3128", OpenTimeout: 5 * time.Second, ReadTimeout: 7 * time.Second}
	b := NewConnectOptionsBuilder(nil, settings)
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}},
	)

	opts, err := b.Build(system, ConnectOverrides{})
	require.NoError(t, err)

	assert.Equal(t, "a", opts.Host)
	assert.Equal(t, domain.DefaultAPIPort, opts.Port)
	assert.Equal(t, "tok", opts.Bearer)
	assert.Equal(t, domain.VerifyPeer, opts.SSL.VerifyMode)
	assert.Equal(t, "http://proxy:3128", opts.HTTPProxy)
	assert.Equal(t, DefaultAPIPath, opts.Path)
	assert.Equal(t, DefaultAPIVersion, opts.APIVersion)
	assert.Equal(t, 5*time.Second, opts.OpenTimeout)
	assert.Equal(t, 7*time.Second, opts.ReadTimeout)
	assert.Equal(t, "https://a:6443/api", opts.URL().String())
}

func TestConnectOptionsBuilder_Overrides(t *testing.T) {
	b := NewConnectOptionsBuilder(nil, ProviderSettings{HTTPProxy: "http://global:3128"})
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a", Port: 8443}},
		[]domain.Authentication{
			{AuthType: domain.AuthBearer, AuthKey: "tok"},
			{AuthType: domain.AuthKubevirt, AuthKey: "virt"},
		},
	)
	system.HTTPProxy = "http://own:3128"
	noVerify := domain.SSLPolicy{VerifyMode: domain.VerifyNone}

	opts, err := b.Build(system, ConnectOverrides{
		Host:       "b",
		Port:       9443,
		AuthType:   domain.AuthKubevirt,
		SSL:        &noVerify,
		Path:       ServiceCatalogAPIPath,
		APIVersion: ServiceCatalogAPIVersion,
	})
	require.NoError(t, err)

	assert.Equal(t, "b", opts.Host)
	assert.Equal(t, 9443, opts.Port)
	assert.Equal(t, "virt", opts.Bearer)
	assert.Equal(t, domain.VerifyNone, opts.SSL.VerifyMode)
	assert.Equal(t, "http://own:3128", opts.HTTPProxy)
	assert.Equal(t, ServiceCatalogAPIPath, opts.Path)
	assert.Equal(t, ServiceCatalogAPIVersion, opts.APIVersion)

	opts, err = b.Build(system, ConnectOverrides{Bearer: "explicit", HTTPProxy: "http://call:3128"})
	require.NoError(t, err)
	assert.Equal(t, "explicit", opts.Bearer)
	assert.Equal(t, "http://call:3128", opts.HTTPProxy)
	assert.Equal(t, 8443, opts.Port)
}

func TestConnectOptionsBuilder_TargetEndpointSSL(t *testing.T) {
	b := NewConnectOptionsBuilder(nil, DefaultProviderSettings())
	system := mustSystem(
		[]domain.Endpoint{
			{Role: domain.RoleDefault, Hostname: "a", SecurityProtocol: domain.SSLWithValidation},
			{Role: domain.RolePrometheus, Hostname: "p", SecurityProtocol: domain.SSLWithoutValidation},
		},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}},
	)

	primary, err := b.Build(system, ConnectOverrides{})
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyPeer, primary.SSL.VerifyMode)

	prom, err := b.BuildForEndpoint(system, domain.RolePrometheus)
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyNone, prom.SSL.VerifyMode)
	assert.Equal(t, "p", prom.Host)
	assert.Equal(t, 443, prom.Port)
	assert.Equal(t, "tok", prom.Bearer)
}

func TestConnectOptionsBuilder_PasswordAuthentication(t *testing.T) {
	b := NewConnectOptionsBuilder(nil, DefaultProviderSettings())
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}},
		[]domain.Authentication{{AuthType: domain.AuthPassword, UserID: "admin", Password: "secret"}},
	)

	opts, err := b.Build(system, ConnectOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "admin", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Empty(t, opts.Bearer)
}

func TestConnectOptionsBuilder_MissingEndpoint(t *testing.T) {
	b := NewConnectOptionsBuilder(nil, DefaultProviderSettings())
	system := mustSystem(nil, nil)

	_, err := b.Build(system, ConnectOverrides{})
	assert.True(t, errors.Is(err, domainerrors.ErrMissingEndpoint))

	_, err = b.BuildForEndpoint(system, domain.RoleHawkular)
	assert.True(t, errors.Is(err, domainerrors.ErrMissingEndpoint))
}
