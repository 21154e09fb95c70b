package services

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sufield/clusterauth/internal/core/domain"
	domainerrors "github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

func newTestVerifier(c ports.ClusterConnector, opts ...VerifierOption) *CredentialVerifier {
	return NewCredentialVerifier(c, NewConnectOptionsBuilder(nil, DefaultProviderSettings()), opts...)
}

func TestVerify_DefaultScenario(t *testing.T) {
	connector := &mockConnector{}
	connector.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil)
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a", Port: 6443}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}},
	)

	outcome, err := newTestVerifier(connector).Verify(context.Background(), "", system)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)

	connector.AssertNumberOfCalls(t, "Connect", 1)
	opts := connector.Calls[0].Arguments.Get(1).(ports.ConnectOptions)
	assert.Equal(t, "a:6443", opts.Address())
	assert.Equal(t, "tok", opts.Bearer)
	assert.Equal(t, domain.VerifyPeer, opts.SSL.VerifyMode)
}

func TestVerify_UnreachableIsNeverInvalidCredentials(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "unreachable.invalid"}, {Role: domain.RoleKubevirt, Hostname: "unreachable.invalid"}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}, {AuthType: domain.AuthKubevirt, AuthKey: "virt"}},
	)

	for _, role := range []domain.Role{domain.RoleDefault, domain.RoleKubevirt} {
		t.Run(role.String(), func(t *testing.T) {
			connector := &mockConnector{}
			connector.On("Connect", mock.Anything, mock.Anything).Return(nil, refused)

			_, err := newTestVerifier(connector).Verify(context.Background(), role, system)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrUnreachable))
			assert.False(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
			assert.True(t, domainerrors.IsRetryable(err))
		})
	}
}

func TestVerify_InvalidCredentialsPassThrough(t *testing.T) {
	connector := &mockConnector{}
	connector.On("Connect", mock.Anything, mock.Anything).
		Return(nil, domainerrors.NewDomainError(domainerrors.ErrInvalidCredentials, errors.New("401")))
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "bad"}},
	)

	_, err := newTestVerifier(connector).Verify(context.Background(), domain.RoleDefault, system)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.False(t, domainerrors.IsRetryable(err))
}

func TestVerify_UnsupportedRoleMakesNoCalls(t *testing.T) {
	connector := &mockConnector{}
	probe := &fakeProbe{}
	monitoring := &fakeMonitoring{}
	metrics := newCountingMetrics()
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}},
	)
	v := newTestVerifier(connector,
		WithMetricsProbe(domain.RolePrometheus, probe),
		WithMonitoringManager(monitoring),
		WithVerifierMetrics(metrics),
	)

	_, err := v.Verify(context.Background(), domain.Role("openshift"), system)
	assert.True(t, errors.Is(err, domainerrors.ErrUnsupportedRole))
	connector.AssertNumberOfCalls(t, "Connect", 0)
	assert.Empty(t, probe.calls)
	assert.Zero(t, monitoring.ensured)
	assert.Equal(t, 1, metrics.verification["openshift/unsupported"])
}

func TestVerify_NilSystem(t *testing.T) {
	connector := &mockConnector{}
	v := newTestVerifier(connector)

	_, err := v.Verify(context.Background(), domain.RoleDefault, nil)
	var validationErr *domainerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "system", validationErr.Field)
	assert.False(t, domainerrors.IsRetryable(err))

	results := v.VerifyAll(context.Background(), nil)
	require.Len(t, results, 1)
	assert.Equal(t, domain.RoleDefault, results[0].Role)
	assert.True(t, errors.As(results[0].Err, &validationErr))
	connector.AssertNumberOfCalls(t, "Connect", 0)
}

func TestVerify_KubevirtCapability(t *testing.T) {
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}, {Role: domain.RoleKubevirt, Hostname: "virt.example.com", Port: 8443}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}, {AuthType: domain.AuthKubevirt, AuthKey: "virt"}},
	)

	t.Run("supported", func(t *testing.T) {
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{virtualization: true}, nil)

		outcome, err := newTestVerifier(connector).Verify(context.Background(), domain.RoleKubevirt, system)
		require.NoError(t, err)
		assert.Equal(t, OutcomeVerified, outcome)

		opts := connector.Calls[0].Arguments.Get(1).(ports.ConnectOptions)
		assert.Equal(t, "virt", opts.Bearer)
		assert.Equal(t, "virt.example.com:8443", opts.Address())
	})

	t.Run("not served", func(t *testing.T) {
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil)

		_, err := newTestVerifier(connector).Verify(context.Background(), domain.RoleKubevirt, system)
		assert.True(t, errors.Is(err, domainerrors.ErrCapabilityMissing))
		assert.False(t, domainerrors.IsRetryable(err))
	})
}

func TestVerify_MetricsRoles(t *testing.T) {
	system := mustSystem(
		[]domain.Endpoint{
			{Role: domain.RoleDefault, Hostname: "a"},
			{Role: domain.RoleHawkular, Hostname: "h"},
			{Role: domain.RolePrometheus, Hostname: "p", Port: 443, SecurityProtocol: domain.SSLWithoutValidation},
		},
		[]domain.Authentication{
			{AuthType: domain.AuthBearer, AuthKey: "tok"},
			{AuthType: domain.AuthHawkular, AuthKey: "tok"},
			{AuthType: domain.AuthPrometheus, AuthKey: "tok"},
		},
	)

	t.Run("no probe wired is an explicit no-op", func(t *testing.T) {
		connector := &mockConnector{}
		outcome, err := newTestVerifier(connector).Verify(context.Background(), domain.RoleHawkular, system)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoVerification, outcome)
		connector.AssertNumberOfCalls(t, "Connect", 0)
	})

	t.Run("probe receives replicated secret and endpoint policy", func(t *testing.T) {
		probe := &fakeProbe{}
		outcome, err := newTestVerifier(&mockConnector{}, WithMetricsProbe(domain.RolePrometheus, probe)).
			Verify(context.Background(), domain.RolePrometheus, system)
		require.NoError(t, err)
		assert.Equal(t, OutcomeVerified, outcome)
		require.Len(t, probe.calls, 1)
		assert.Equal(t, "tok", probe.calls[0].Bearer)
		assert.Equal(t, "p:443", probe.calls[0].Address())
		assert.Equal(t, domain.VerifyNone, probe.calls[0].SSL.VerifyMode)
	})

	t.Run("probe failure is surfaced", func(t *testing.T) {
		probe := &fakeProbe{err: domainerrors.NewDomainError(domainerrors.ErrInvalidCredentials, nil)}
		_, err := newTestVerifier(&mockConnector{}, WithMetricsProbe(domain.RolePrometheus, probe)).
			Verify(context.Background(), domain.RolePrometheus, system)
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	})
}

func TestVerify_AlertsDelegatesToMonitoring(t *testing.T) {
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}, {Role: domain.RolePrometheusAlerts, Hostname: "alerts", Port: 443}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}, {AuthType: domain.AuthPrometheusAlerts, AuthKey: "tok"}},
	)

	outcome, err := newTestVerifier(&mockConnector{}).Verify(context.Background(), domain.RolePrometheusAlerts, system)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoVerification, outcome)

	monitoring := &fakeMonitoring{}
	outcome, err = newTestVerifier(&mockConnector{}, WithMonitoringManager(monitoring)).
		Verify(context.Background(), domain.RolePrometheusAlerts, system)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)
	assert.Equal(t, 1, monitoring.ensured)
	assert.Equal(t, "alerts:443", monitoring.opts.Address())

	monitoring = &fakeMonitoring{err: domainerrors.NewDomainError(domainerrors.ErrUnreachable, nil)}
	_, err = newTestVerifier(&mockConnector{}, WithMonitoringManager(monitoring)).
		Verify(context.Background(), domain.RolePrometheusAlerts, system)
	assert.True(t, errors.Is(err, domainerrors.ErrUnreachable))
}

func TestVerifyAll(t *testing.T) {
	connector := &mockConnector{}
	connector.On("Connect", mock.Anything, mock.MatchedBy(func(o ports.ConnectOptions) bool { return o.Bearer == "tok" })).
		Return(&fakeConnection{}, nil)
	connector.On("Connect", mock.Anything, mock.MatchedBy(func(o ports.ConnectOptions) bool { return o.Bearer == "virt" })).
		Return(nil, domainerrors.NewDomainError(domainerrors.ErrInvalidCredentials, nil))
	system := mustSystem(
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}, {Role: domain.RoleKubevirt, Hostname: "a"}, {Role: domain.RolePrometheus, Hostname: "p"}},
		[]domain.Authentication{
			{AuthType: domain.AuthBearer, AuthKey: "tok"},
			{AuthType: domain.AuthKubevirt, AuthKey: "virt"},
			{AuthType: domain.AuthPrometheus, AuthKey: "tok"},
		},
	)

	results := newTestVerifier(connector).VerifyAll(context.Background(), system)
	require.Len(t, results, 3)

	byRole := map[domain.Role]VerificationResult{}
	for _, r := range results {
		byRole[r.Role] = r
	}
	assert.True(t, byRole[domain.RoleDefault].OK())
	assert.Equal(t, OutcomeNoVerification, byRole[domain.RolePrometheus].Outcome)
	assert.True(t, errors.Is(byRole[domain.RoleKubevirt].Err, domainerrors.ErrInvalidCredentials))
}

func TestVerifySubmitted(t *testing.T) {
	t.Run("default endpoint uses submitted bearer and protocol", func(t *testing.T) {
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil)

		outcome, err := newTestVerifier(connector).VerifySubmitted(context.Background(), SubmittedCredentials{
			Endpoints:       []domain.Endpoint{{Role: domain.RoleDefault, Hostname: "new", SecurityProtocol: domain.SSLWithoutValidation}},
			Authentications: []domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}},
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeVerified, outcome)

		opts := connector.Calls[0].Arguments.Get(1).(ports.ConnectOptions)
		assert.Equal(t, "new:6443", opts.Address())
		assert.Equal(t, "tok", opts.Bearer)
		assert.Equal(t, domain.VerifyNone, opts.SSL.VerifyMode)
	})

	t.Run("stored token is used when none submitted", func(t *testing.T) {
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.Anything).Return(&fakeConnection{}, nil)
		store := fakeCredentialStore{"7/kubevirt": "stored-virt"}

		_, err := newTestVerifier(connector, WithCredentialStore(store)).VerifySubmitted(context.Background(), SubmittedCredentials{
			SystemID:  "7",
			Endpoints: []domain.Endpoint{{Role: domain.RoleKubevirt, Hostname: "virt"}},
		})
		require.NoError(t, err)
		opts := connector.Calls[0].Arguments.Get(1).(ports.ConnectOptions)
		assert.Equal(t, "stored-virt", opts.Bearer)
	})

	t.Run("metrics roles are not contacted", func(t *testing.T) {
		connector := &mockConnector{}
		for _, role := range []domain.Role{domain.RolePrometheus, domain.RoleHawkular, domain.RolePrometheusAlerts} {
			outcome, err := newTestVerifier(connector).VerifySubmitted(context.Background(), SubmittedCredentials{
				Endpoints: []domain.Endpoint{{Role: role, Hostname: "m"}},
			})
			require.NoError(t, err)
			assert.Equal(t, OutcomeNoVerification, outcome)
		}
		connector.AssertNumberOfCalls(t, "Connect", 0)
	})

	t.Run("unknown role", func(t *testing.T) {
		connector := &mockConnector{}
		_, err := newTestVerifier(connector).VerifySubmitted(context.Background(), SubmittedCredentials{
			Endpoints: []domain.Endpoint{{Role: "openshift", Hostname: "m"}},
		})
		assert.True(t, errors.Is(err, domainerrors.ErrUnsupportedRole))
		connector.AssertNumberOfCalls(t, "Connect", 0)
	})
}
