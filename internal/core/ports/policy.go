package ports

import (
	"context"

	"github.com/sufield/clusterauth/internal/core/domain"
)

// PolicyEngine receives policy evaluation requests. Dispatch must not block on
// the decision.
type PolicyEngine interface {
	Dispatch(ctx context.Context, req domain.PolicyRequest) error
}

// ContinuationStore keeps pending continuations until their decision arrives.
// Take removes and returns a record atomically, so a record is taken at most once;
// a missing record yields errors.ErrContinuationNotFound.
type ContinuationStore interface {
	Save(ctx context.Context, rec domain.ContinuationRecord) error
	Take(ctx context.Context, id string) (domain.ContinuationRecord, error)
}

// JobQueue accepts scan jobs for background execution.
type JobQueue interface {
	Submit(ctx context.Context, job domain.ScanJob) error
}

// CredentialStore looks up secrets already stored for a managed system.
type CredentialStore interface {
	AuthenticationToken(ctx context.Context, systemID string, authType domain.AuthType) (string, error)
}
