package services

import (
	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
)

// AuthenticationReplicator completes a submitted authentication list so that every
// declared endpoint has a secret. Both modes are pure: inputs are never modified.
type AuthenticationReplicator struct{}

// NewAuthenticationReplicator creates a replicator.
func NewAuthenticationReplicator() *AuthenticationReplicator {
	return &AuthenticationReplicator{}
}

// ReplicateForCreate copies the bearer secret to every endpoint role that does not
// own its authentication. default and kubevirt are never touched.
func (r *AuthenticationReplicator) ReplicateForCreate(endpoints []domain.Endpoint, auths []domain.Authentication) ([]domain.Authentication, error) {
	out := cloneAuthentications(auths)
	bearer, found := domain.FindAuthentication(auths, domain.AuthBearer)
	hasBearer := found && bearer.HasSecret()

	for _, e := range endpoints {
		if e.Role.OwnsAuthentication() {
			continue
		}
		if !hasBearer {
			return nil, errors.NewDomainError(errors.ErrMissingBearer, nil)
		}
		if _, exists := domain.FindAuthentication(out, e.Role.AuthType()); exists {
			continue
		}
		out = append(out, bearer.WithAuthType(e.Role.AuthType()))
	}
	return out, nil
}

// ReplicateForEdit completes an update. Secrets are never sent back to clients, so a
// missing secret on update means "keep", not "delete". Entries submitted without a
// secret count as absent: shared roles are filled from the bearer, the rest become
// Unchanged placeholders. storedBearer is the bearer secret currently persisted.
func (r *AuthenticationReplicator) ReplicateForEdit(endpoints []domain.Endpoint, auths []domain.Authentication, storedBearer string) []domain.Authentication {
	shared := make(map[domain.AuthType]bool, len(endpoints))
	for _, e := range endpoints {
		if !e.Role.OwnsAuthentication() {
			shared[e.Role.AuthType()] = true
		}
	}

	out := make([]domain.Authentication, 0, len(auths)+len(endpoints))
	for _, a := range auths {
		switch {
		case a.Unchanged || !a.KeepsStored():
			out = append(out, a)
		case shared[a.AuthType]:
			// filled below like an absent entry
		default:
			out = append(out, domain.Authentication{AuthType: a.AuthType, UserID: a.UserID, Unchanged: true})
		}
	}
	bearer, hasBearer := domain.FindAuthentication(out, domain.AuthBearer)
	newBearer := hasBearer && bearer.HasSecret()

	for _, e := range endpoints {
		authType := e.Role.AuthType()
		if _, exists := domain.FindAuthentication(out, authType); exists {
			continue
		}

		switch {
		case e.Role.OwnsAuthentication():
			out = append(out, domain.Authentication{AuthType: authType, Unchanged: true})
		case newBearer:
			out = append(out, bearer.WithAuthType(authType))
		case storedBearer != "":
			out = append(out, domain.Authentication{AuthType: authType, AuthKey: storedBearer})
		default:
			out = append(out, domain.Authentication{AuthType: authType, Unchanged: true})
		}
	}
	return out
}

func cloneAuthentications(auths []domain.Authentication) []domain.Authentication {
	out := make([]domain.Authentication, len(auths), len(auths)+5)
	copy(out, auths)
	return out
}
