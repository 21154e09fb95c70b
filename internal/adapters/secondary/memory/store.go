// Package memory provides in-process implementations of the policy and job ports.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

var (
	_ ports.ContinuationStore = (*ContinuationStore)(nil)
	_ ports.PolicyEngine      = (*QueueEngine)(nil)
	_ ports.JobQueue          = (*JobQueue)(nil)
	_ ports.CredentialStore   = (*CredentialStore)(nil)
)

// ContinuationStore keeps continuation records in a map.
type ContinuationStore struct {
	mu      sync.Mutex
	records map[string]domain.ContinuationRecord
}

// NewContinuationStore creates an empty store.
func NewContinuationStore() *ContinuationStore {
	return &ContinuationStore{records: make(map[string]domain.ContinuationRecord)}
}

// Save stores rec under its ID.
func (s *ContinuationStore) Save(_ context.Context, rec domain.ContinuationRecord) error {
	if rec.ID == "" {
		return &errors.ValidationError{Field: "id", Value: rec.ID, Message: "continuation id cannot be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// Take removes and returns the record stored under id.
func (s *ContinuationStore) Take(_ context.Context, id string) (domain.ContinuationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.ContinuationRecord{}, errors.NewDomainError(errors.ErrContinuationNotFound, fmt.Errorf("callback %s", id))
	}
	delete(s.records, id)
	return rec, nil
}

// Len returns the number of pending records.
func (s *ContinuationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// QueueEngine buffers policy requests until a caller drains them.
type QueueEngine struct {
	mu       sync.Mutex
	requests []domain.PolicyRequest
}

// NewQueueEngine creates an empty engine.
func NewQueueEngine() *QueueEngine {
	return &QueueEngine{}
}

// Dispatch appends req.
func (e *QueueEngine) Dispatch(_ context.Context, req domain.PolicyRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return nil
}

// Next pops the oldest request. ok is false when none is pending.
func (e *QueueEngine) Next(context.Context) (req domain.PolicyRequest, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return domain.PolicyRequest{}, false, nil
	}
	req = e.requests[0]
	e.requests = e.requests[1:]
	return req, true, nil
}

// JobQueue collects submitted scan jobs.
type JobQueue struct {
	mu   sync.Mutex
	jobs []domain.ScanJob
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

// Submit appends job.
func (q *JobQueue) Submit(_ context.Context, job domain.ScanJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// Jobs returns a copy of the submitted jobs.
func (q *JobQueue) Jobs() []domain.ScanJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.ScanJob(nil), q.jobs...)
}

// CredentialStore answers token lookups from a fixed set of managed systems.
type CredentialStore struct {
	mu      sync.RWMutex
	systems map[string]*domain.ManagedSystem
}

// NewCredentialStore creates a store over systems.
func NewCredentialStore(systems ...*domain.ManagedSystem) *CredentialStore {
	s := &CredentialStore{systems: make(map[string]*domain.ManagedSystem, len(systems))}
	for _, m := range systems {
		s.systems[m.ID] = m
	}
	return s
}

// Put replaces the stored snapshot of m.
func (s *CredentialStore) Put(m *domain.ManagedSystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[m.ID] = m
}

// AuthenticationToken returns the stored secret, or "" when the system or
// auth type is unknown.
func (s *CredentialStore) AuthenticationToken(_ context.Context, systemID string, t domain.AuthType) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.systems[systemID]
	if !ok {
		return "", nil
	}
	return m.Authentications.Token(t), nil
}
