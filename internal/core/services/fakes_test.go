package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context, opts ports.ConnectOptions) (ports.ClusterConnection, error) {
	args := m.Called(ctx, opts)
	conn, _ := args.Get(0).(ports.ClusterConnection)
	return conn, args.Error(1)
}

type fakeConnection struct {
	virtualization bool
	virtErr        error
}

func (c *fakeConnection) ServerVersion(context.Context) (string, error) {
	return "v1.30.0", nil
}

func (c *fakeConnection) SupportsVirtualization(context.Context) (bool, error) {
	return c.virtualization, c.virtErr
}

type fakeProbe struct {
	calls []ports.ConnectOptions
	err   error
}

func (p *fakeProbe) Probe(_ context.Context, _ domain.Endpoint, opts ports.ConnectOptions) error {
	p.calls = append(p.calls, opts)
	return p.err
}

type fakeMonitoring struct {
	ensured int
	opts    ports.ConnectOptions
	err     error
}

func (m *fakeMonitoring) Ensure(_ context.Context, _ *domain.ManagedSystem, opts ports.ConnectOptions) (ports.MonitoringVerifier, error) {
	m.ensured++
	m.opts = opts
	return m, nil
}

func (m *fakeMonitoring) VerifyCredentials(context.Context) error {
	return m.err
}

type fakeCredentialStore map[string]string

func (s fakeCredentialStore) AuthenticationToken(_ context.Context, systemID string, t domain.AuthType) (string, error) {
	return s[systemID+"/"+string(t)], nil
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]domain.ContinuationRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]domain.ContinuationRecord)}
}

func (s *memoryStore) Save(_ context.Context, rec domain.ContinuationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *memoryStore) Take(_ context.Context, id string) (domain.ContinuationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.ContinuationRecord{}, errors.NewDomainError(errors.ErrContinuationNotFound, nil)
	}
	delete(s.records, id)
	return rec, nil
}

type recordingEngine struct {
	requests []domain.PolicyRequest
	err      error
}

func (e *recordingEngine) Dispatch(_ context.Context, req domain.PolicyRequest) error {
	if e.err != nil {
		return e.err
	}
	e.requests = append(e.requests, req)
	return nil
}

type countingMetrics struct {
	mu           sync.Mutex
	verification map[string]int
	decisions    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{verification: map[string]int{}, decisions: map[string]int{}}
}

func (m *countingMetrics) RecordVerification(role, result string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[role+"/"+result]++
}

func (m *countingMetrics) RecordPolicyDecision(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[result]++
}

func (m *countingMetrics) RecordContinuation(string) {}

func mustSystem(endpoints []domain.Endpoint, auths []domain.Authentication) *domain.ManagedSystem {
	m, err := domain.NewManagedSystem("42", "ocp", endpoints, auths)
	if err != nil {
		panic(err)
	}
	return m
}
