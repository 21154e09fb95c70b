package cli

import (
	stderrors "errors"

	"github.com/sufield/clusterauth/internal/core/errors"
)

// Sentinel errors for exit code classification
var (
	// ErrUsage indicates invalid command usage, flags, or arguments
	ErrUsage = stderrors.New("usage error")

	// ErrConfig indicates invalid configuration
	ErrConfig = stderrors.New("configuration error")

	// ErrAuth indicates the cluster rejected the credentials
	ErrAuth = stderrors.New("authentication error")

	// ErrRuntime indicates runtime execution failures such as unreachable endpoints
	ErrRuntime = stderrors.New("runtime error")

	// ErrInternal indicates internal system errors
	ErrInternal = stderrors.New("internal error")
)

// Exit codes returned by the clusterauth binary.
const (
	ExitSuccess  = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitAuth     = 4
	ExitInternal = 5
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case stderrors.Is(err, ErrUsage):
		return ExitUsage
	case stderrors.Is(err, ErrConfig),
		stderrors.Is(err, errors.ErrMissingConfiguration),
		stderrors.Is(err, errors.ErrInvalidCertificateAuthority):
		return ExitConfig
	case stderrors.Is(err, ErrAuth), stderrors.Is(err, errors.ErrInvalidCredentials):
		return ExitAuth
	case stderrors.Is(err, ErrInternal):
		return ExitInternal
	default:
		return ExitRuntime
	}
}
