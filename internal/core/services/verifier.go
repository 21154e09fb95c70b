package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// Outcome is the result of a verification that did not fail.
type Outcome int

const (
	// OutcomeVerified means the endpoint accepted the credentials.
	OutcomeVerified Outcome = iota + 1
	// OutcomeNoVerification means the role has no verification routine wired and
	// nothing was contacted. It counts as success.
	OutcomeNoVerification
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeNoVerification:
		return "no_verification"
	default:
		return "failed"
	}
}

// VerificationResult is the per-role result of a full verification pass.
type VerificationResult struct {
	Role    domain.Role
	Outcome Outcome
	Err     error
}

// OK reports whether the role passed.
func (r VerificationResult) OK() bool {
	return r.Err == nil
}

type verifyFunc func(ctx context.Context, system *domain.ManagedSystem) (Outcome, error)

// CredentialVerifier dispatches verification by endpoint role. Each call makes at
// most one attempt; retry policy belongs to the caller.
type CredentialVerifier struct {
	connector   ports.ClusterConnector
	builder     *ConnectOptionsBuilder
	probes      map[domain.Role]ports.MetricsProbe
	monitoring  ports.MonitoringManager
	credentials ports.CredentialStore
	metrics     MetricsReporter
	logger      ports.Logger
	routines    map[domain.Role]verifyFunc
}

// VerifierOption configures a CredentialVerifier.
type VerifierOption func(*CredentialVerifier)

// WithMetricsProbe wires a probe for a metrics role.
func WithMetricsProbe(role domain.Role, probe ports.MetricsProbe) VerifierOption {
	return func(v *CredentialVerifier) {
		v.probes[role] = probe
	}
}

// WithMonitoringManager wires the alerting side channel.
func WithMonitoringManager(m ports.MonitoringManager) VerifierOption {
	return func(v *CredentialVerifier) {
		v.monitoring = m
	}
}

// WithCredentialStore wires the lookup of stored secrets for submitted forms.
func WithCredentialStore(s ports.CredentialStore) VerifierOption {
	return func(v *CredentialVerifier) {
		v.credentials = s
	}
}

// WithVerifierMetrics sets the metrics reporter.
func WithVerifierMetrics(m MetricsReporter) VerifierOption {
	return func(v *CredentialVerifier) {
		v.metrics = m
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(l ports.Logger) VerifierOption {
	return func(v *CredentialVerifier) {
		v.logger = l
	}
}

// NewCredentialVerifier creates a verifier.
func NewCredentialVerifier(connector ports.ClusterConnector, builder *ConnectOptionsBuilder, opts ...VerifierOption) *CredentialVerifier {
	v := &CredentialVerifier{
		connector: connector,
		builder:   builder,
		probes:    make(map[domain.Role]ports.MetricsProbe),
		metrics:   noopMetrics{},
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.routines = map[domain.Role]verifyFunc{
		domain.RoleDefault:          v.verifyDefault,
		domain.RoleKubevirt:         v.verifyKubevirt,
		domain.RoleHawkular:         v.metricsRoutine(domain.RoleHawkular),
		domain.RolePrometheus:       v.metricsRoutine(domain.RolePrometheus),
		domain.RolePrometheusAlerts: v.verifyAlerts,
	}
	return v
}

// Verify runs the routine for role against system. An empty role verifies the
// primary API. Unknown roles and a nil system fail without any network call.
func (v *CredentialVerifier) Verify(ctx context.Context, role domain.Role, system *domain.ManagedSystem) (Outcome, error) {
	if system == nil {
		return 0, errNoSystem
	}
	if role == "" {
		role = domain.RoleDefault
	}
	routine, ok := v.routines[role]
	if !ok {
		v.metrics.RecordVerification(role.String(), "unsupported", 0)
		return 0, errors.NewDomainError(errors.ErrUnsupportedRole, fmt.Errorf("role %q", role))
	}

	start := time.Now()
	outcome, err := routine(ctx, system)
	err = classifyError(err)
	elapsed := time.Since(start).Seconds()

	logger := v.logger.WithAttrs(ports.Attr("role", role.String()), ports.Attr("system", system.Name))
	if err != nil {
		v.metrics.RecordVerification(role.String(), resultLabel(err), elapsed)
		logger.Warn(ctx, "credential verification failed", ports.Attr("error", err.Error()))
		return 0, fmt.Errorf("verify %s credentials: %w", role, err)
	}
	v.metrics.RecordVerification(role.String(), outcome.String(), elapsed)
	logger.Debug(ctx, "credential verification finished", ports.Attr("outcome", outcome.String()))
	return outcome, nil
}

var errNoSystem = &errors.ValidationError{Field: "system", Message: "a managed system is required"}

// VerifyAll verifies every auth type the system carries. Roles are verified
// concurrently and do not share state. A nil system yields a single failed
// result for the primary role.
func (v *CredentialVerifier) VerifyAll(ctx context.Context, system *domain.ManagedSystem) []VerificationResult {
	if system == nil {
		return []VerificationResult{{Role: domain.RoleDefault, Err: errNoSystem}}
	}
	authTypes := system.AuthenticationsToValidate()
	results := make([]VerificationResult, len(authTypes))

	var g errgroup.Group
	for i, at := range authTypes {
		i, at := i, at
		g.Go(func() error {
			role := at.Role()
			outcome, err := v.Verify(ctx, role, system)
			results[i] = VerificationResult{Role: role, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SubmittedCredentials is unsaved form data to check before a system is created
// or updated. Only the first endpoint is verified.
type SubmittedCredentials struct {
	SystemID        string
	Endpoints       []domain.Endpoint
	Authentications []domain.Authentication
}

// VerifySubmitted checks credentials that have not been stored yet. Metrics and
// alerting roles report OutcomeNoVerification.
func (v *CredentialVerifier) VerifySubmitted(ctx context.Context, params SubmittedCredentials) (Outcome, error) {
	if len(params.Endpoints) == 0 {
		return 0, errors.NewDomainError(errors.ErrMissingEndpoint, nil)
	}
	endpoint := params.Endpoints[0]

	switch {
	case endpoint.Role.OwnsAuthentication():
	case endpoint.Role.IsMetrics(), endpoint.Role == domain.RolePrometheusAlerts:
		return OutcomeNoVerification, nil
	default:
		return 0, errors.NewDomainError(errors.ErrUnsupportedRole, fmt.Errorf("role %q", endpoint.Role))
	}

	token, err := v.submittedToken(ctx, params, endpoint.Role)
	if err != nil {
		return 0, err
	}

	opts := ports.ConnectOptions{
		Role:        endpoint.Role,
		Host:        endpoint.Hostname,
		Port:        endpoint.EffectivePort(),
		Path:        DefaultAPIPath,
		APIVersion:  DefaultAPIVersion,
		Bearer:      token,
		SSL:         v.builder.resolver.Resolve(endpoint.SecurityProtocol, endpoint.VerifySSL, endpoint.CertificateAuthority),
		HTTPProxy:   v.builder.settings.HTTPProxy,
		OpenTimeout: v.builder.settings.OpenTimeout,
		ReadTimeout: v.builder.settings.ReadTimeout,
	}
	if _, err := v.connector.Connect(ctx, opts); err != nil {
		return 0, classifyError(err)
	}
	return OutcomeVerified, nil
}

func (v *CredentialVerifier) submittedToken(ctx context.Context, params SubmittedCredentials, role domain.Role) (string, error) {
	for _, t := range []domain.AuthType{domain.AuthBearer, domain.AuthKubevirt} {
		if a, ok := domain.FindAuthentication(params.Authentications, t); ok && a.HasSecret() {
			return a.AuthKey, nil
		}
	}
	if params.SystemID == "" || v.credentials == nil {
		return "", nil
	}
	token, err := v.credentials.AuthenticationToken(ctx, params.SystemID, role.AuthType())
	if err != nil {
		return "", fmt.Errorf("failed to look up stored %s token: %w", role.AuthType(), err)
	}
	return token, nil
}

func (v *CredentialVerifier) optionsFor(system *domain.ManagedSystem, role domain.Role) (ports.ConnectOptions, error) {
	if system.Endpoints.Has(role) {
		return v.builder.BuildForEndpoint(system, role)
	}
	return v.builder.Build(system, ConnectOverrides{
		Role:     role,
		AuthType: role.AuthType(),
		Bearer:   system.SecretFor(role),
	})
}

func (v *CredentialVerifier) verifyDefault(ctx context.Context, system *domain.ManagedSystem) (Outcome, error) {
	opts, err := v.builder.Build(system, ConnectOverrides{})
	if err != nil {
		return 0, err
	}
	if _, err := v.connector.Connect(ctx, opts); err != nil {
		return 0, err
	}
	return OutcomeVerified, nil
}

func (v *CredentialVerifier) verifyKubevirt(ctx context.Context, system *domain.ManagedSystem) (Outcome, error) {
	opts, err := v.optionsFor(system, domain.RoleKubevirt)
	if err != nil {
		return 0, err
	}
	conn, err := v.connector.Connect(ctx, opts)
	if err != nil {
		return 0, err
	}
	supported, err := conn.SupportsVirtualization(ctx)
	if err != nil {
		return 0, err
	}
	if !supported {
		return 0, errors.NewDomainError(errors.ErrCapabilityMissing, fmt.Errorf("virtualization API is not served"))
	}
	return OutcomeVerified, nil
}

func (v *CredentialVerifier) metricsRoutine(role domain.Role) verifyFunc {
	return func(ctx context.Context, system *domain.ManagedSystem) (Outcome, error) {
		probe, ok := v.probes[role]
		if !ok || probe == nil {
			return OutcomeNoVerification, nil
		}
		endpoint, ok := system.Endpoints.Lookup(role)
		if !ok {
			return 0, errors.NewDomainError(errors.ErrMissingEndpoint, fmt.Errorf("role %q", role))
		}
		opts, err := v.builder.BuildForEndpoint(system, role)
		if err != nil {
			return 0, err
		}
		if err := probe.Probe(ctx, endpoint, opts); err != nil {
			return 0, err
		}
		return OutcomeVerified, nil
	}
}

func (v *CredentialVerifier) verifyAlerts(ctx context.Context, system *domain.ManagedSystem) (Outcome, error) {
	if v.monitoring == nil {
		return OutcomeNoVerification, nil
	}
	opts, err := v.optionsFor(system, domain.RolePrometheusAlerts)
	if err != nil {
		return 0, err
	}
	monitor, err := v.monitoring.Ensure(ctx, system, opts)
	if err != nil {
		return 0, err
	}
	if err := monitor.VerifyCredentials(ctx); err != nil {
		return 0, err
	}
	return OutcomeVerified, nil
}

// classifyError maps raw transport failures onto the error taxonomy. Errors that
// already carry a domain code pass through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *errors.DomainError
	if stderrors.As(err, &domainErr) {
		return err
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case stderrors.As(err, &dnsErr),
		stderrors.As(err, &opErr),
		stderrors.As(err, &netErr),
		stderrors.Is(err, syscall.ECONNREFUSED),
		stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewDomainError(errors.ErrUnreachable, err)
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrUnreachable):
		return "unreachable"
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return "invalid_credentials"
	case stderrors.Is(err, errors.ErrCapabilityMissing):
		return "capability_missing"
	default:
		return "error"
	}
}
