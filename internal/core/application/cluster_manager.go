// Package application composes the verification, connection and policy services
// into the operations offered for one managed cluster.
package application

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
	"github.com/sufield/clusterauth/internal/core/services"
)

const (
	// ScanEvent is the policy event raised before a container image scan.
	ScanEvent = "request_containerimage_scan"
	// SelectorRawScanJobCreate resumes a scan request once policy allows it.
	SelectorRawScanJobCreate = "raw_scan_job_create"
)

var classNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(::[A-Za-z_][A-Za-z0-9_]*)*$`)

// Dependencies are the collaborators a ClusterManager is composed of.
// Builder and Verifier are derived from Connector when left nil.
type Dependencies struct {
	Connector  ports.ClusterConnector
	Builder    *services.ConnectOptionsBuilder
	Verifier   *services.CredentialVerifier
	Gate       *services.PolicyGate
	Jobs       ports.JobQueue
	Logger     ports.Logger
	ServerHost string
}

// ClusterManager offers verification, connection and gated actions for one
// managed cluster snapshot.
type ClusterManager struct {
	system     *domain.ManagedSystem
	connector  ports.ClusterConnector
	builder    *services.ConnectOptionsBuilder
	verifier   *services.CredentialVerifier
	replicator *services.AuthenticationReplicator
	gate       *services.PolicyGate
	jobs       ports.JobQueue
	logger     ports.Logger
	serverHost string
	now        func() time.Time
}

// NewClusterManager composes a manager for system.
func NewClusterManager(system *domain.ManagedSystem, deps Dependencies) (*ClusterManager, error) {
	if system == nil {
		return nil, &errors.ValidationError{Field: "system", Value: nil, Message: "managed system cannot be nil"}
	}
	if deps.Connector == nil {
		return nil, &errors.ValidationError{Field: "connector", Value: nil, Message: "cluster connector cannot be nil"}
	}
	if deps.Builder == nil {
		deps.Builder = services.NewConnectOptionsBuilder(nil, services.DefaultProviderSettings())
	}
	if deps.Verifier == nil {
		deps.Verifier = services.NewCredentialVerifier(deps.Connector, deps.Builder)
	}
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}

	return &ClusterManager{
		system:     system,
		connector:  deps.Connector,
		builder:    deps.Builder,
		verifier:   deps.Verifier,
		replicator: services.NewAuthenticationReplicator(),
		gate:       deps.Gate,
		jobs:       deps.Jobs,
		logger:     deps.Logger.WithAttrs(ports.Attr("system_id", system.ID)),
		serverHost: deps.ServerHost,
		now:        time.Now,
	}, nil
}

// System returns the snapshot the manager works on.
func (m *ClusterManager) System() *domain.ManagedSystem {
	return m.system
}

// VerifyCredentials verifies one endpoint role; an empty role verifies the primary API.
func (m *ClusterManager) VerifyCredentials(ctx context.Context, role domain.Role) (services.Outcome, error) {
	return m.verifier.Verify(ctx, role, m.system)
}

// VerifyAll verifies every auth type the system carries.
func (m *ClusterManager) VerifyAll(ctx context.Context) []services.VerificationResult {
	return m.verifier.VerifyAll(ctx, m.system)
}

// ConnectOptions returns the options Connect would use.
func (m *ClusterManager) ConnectOptions(o services.ConnectOverrides) (ports.ConnectOptions, error) {
	return m.builder.Build(m.system, o)
}

// Connect opens a connection to the cluster API.
func (m *ClusterManager) Connect(ctx context.Context, o services.ConnectOverrides) (ports.ClusterConnection, error) {
	opts, err := m.builder.Build(m.system, o)
	if err != nil {
		return nil, err
	}
	conn, err := m.connector.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Address(), err)
	}
	return conn, nil
}

// ConnectServiceCatalog opens a connection rooted at the service catalog API group.
func (m *ClusterManager) ConnectServiceCatalog(ctx context.Context, o services.ConnectOverrides) (ports.ClusterConnection, error) {
	if o.Path == "" {
		o.Path = services.ServiceCatalogAPIPath
	}
	if o.APIVersion == "" {
		o.APIVersion = services.ServiceCatalogAPIVersion
	}
	return m.Connect(ctx, o)
}

// EditWithParams applies an update and returns the new snapshot together with the
// completed authentication list. Secrets not resubmitted are kept.
func (m *ClusterManager) EditWithParams(endpoints []domain.Endpoint, auths []domain.Authentication) (*domain.ManagedSystem, []domain.Authentication, error) {
	registry, err := domain.NewEndpointRegistry(endpoints...)
	if err != nil {
		return nil, nil, err
	}
	completed := m.replicator.ReplicateForEdit(endpoints, auths, m.system.Authentications.Token(domain.AuthBearer))
	next := m.system.WithEndpoints(registry).WithAuthentications(m.system.Authentications.Apply(completed))
	return next, completed, nil
}

// ScanJobCreate requests a container image scan. The job is created only once the
// policy engine allows it.
func (m *ClusterManager) ScanJobCreate(ctx context.Context, entity domain.EntityRef, userID string) (services.GuardResult, error) {
	if m.gate == nil {
		return 0, errors.NewDomainError(errors.ErrMissingConfiguration, fmt.Errorf("policy gate is not configured"))
	}
	return m.gate.Guard(ctx, m.system.ID, entity, ScanEvent, services.Continuation{
		Selector: SelectorRawScanJobCreate,
		Args:     []string{entity.Class, entity.ID, userID, entity.Name},
	})
}

// RawScanJobCreate submits a scan job without consulting policy.
func (m *ClusterManager) RawScanJobCreate(ctx context.Context, targetClass, targetID, userID, targetName string) error {
	if !classNamePattern.MatchString(targetClass) {
		return errors.NewDomainError(errors.ErrInvalidTarget, fmt.Errorf("target class must be a class name, got %q", targetClass))
	}
	if m.jobs == nil {
		return errors.NewDomainError(errors.ErrMissingConfiguration, fmt.Errorf("job queue is not configured"))
	}

	job := domain.ScanJob{
		ID:          uuid.NewString(),
		Name:        fmt.Sprintf("Container Image Analysis: '%s'", targetName),
		UserID:      userID,
		TargetClass: targetClass,
		TargetID:    targetID,
		SystemID:    m.system.ID,
		Zone:        m.system.Zone,
		ServerHost:  m.serverHost,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.jobs.Submit(ctx, job); err != nil {
		return fmt.Errorf("failed to submit scan job: %w", err)
	}
	m.logger.Info(ctx, "scan job submitted", ports.Attr("job_id", job.ID), ports.Attr("target_id", targetID))
	return nil
}

// CreateManagedSystem completes the submitted authentications and builds a new
// system snapshot.
func CreateManagedSystem(id, name string, endpoints []domain.Endpoint, auths []domain.Authentication) (*domain.ManagedSystem, error) {
	completed, err := services.NewAuthenticationReplicator().ReplicateForCreate(endpoints, auths)
	if err != nil {
		return nil, err
	}
	return domain.NewManagedSystem(id, name, endpoints, completed)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...ports.LogAttribute) {}
func (nopLogger) Info(context.Context, string, ...ports.LogAttribute)  {}
func (nopLogger) Warn(context.Context, string, ...ports.LogAttribute)  {}
func (nopLogger) Error(context.Context, string, ...ports.LogAttribute) {}
func (l nopLogger) WithAttrs(...ports.LogAttribute) ports.Logger       { return l }
func (l nopLogger) WithGroup(string) ports.Logger                      { return l }
