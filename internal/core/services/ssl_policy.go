package services

import "github.com/sufield/clusterauth/internal/core/domain"

// SSLPolicyResolver maps a declared security protocol to a verify mode and trust source.
//
// Priority: a declared protocol wins over the legacy verify flag, and the flag wins
// over the secure default. Unrecognised protocols resolve to verification.
type SSLPolicyResolver struct{}

// NewSSLPolicyResolver creates a resolver.
func NewSSLPolicyResolver() *SSLPolicyResolver {
	return &SSLPolicyResolver{}
}

// Resolve applies the fallback rules. ca is only used for the custom-CA protocol.
func (r *SSLPolicyResolver) Resolve(protocol domain.SecurityProtocol, legacyVerifySSL *bool, ca string) domain.SSLPolicy {
	switch {
	case !protocol.IsSet():
		if legacyVerifySSL != nil && !*legacyVerifySSL {
			return domain.SSLPolicy{VerifyMode: domain.VerifyNone}
		}
		return domain.SSLPolicy{VerifyMode: domain.VerifyPeer}
	case protocol == domain.SSLWithoutValidation:
		return domain.SSLPolicy{VerifyMode: domain.VerifyNone}
	case protocol == domain.SSLWithValidationCustomCA && ca != "":
		return domain.SSLPolicy{VerifyMode: domain.VerifyPeer, CAData: ca}
	default:
		return domain.SSLPolicy{VerifyMode: domain.VerifyPeer}
	}
}

// ForEndpoint resolves the policy of an endpoint. A nil endpoint verifies
// against the platform trust store.
func (r *SSLPolicyResolver) ForEndpoint(e *domain.Endpoint) domain.SSLPolicy {
	if e == nil {
		return domain.SSLPolicy{VerifyMode: domain.VerifyPeer}
	}
	return r.Resolve(e.SecurityProtocol, e.VerifySSL, e.CertificateAuthority)
}
