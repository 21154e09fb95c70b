// Package monitoring verifies credentials against Prometheus compatible
// metrics and alerting endpoints.
package monitoring

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/config"

	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// statusRecorder remembers the status code of the last response.
type statusRecorder struct {
	next http.RoundTripper
	code atomic.Int32
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(req)
	if resp != nil {
		s.code.Store(int32(resp.StatusCode))
	}
	return resp, err
}

func (s *statusRecorder) lastStatus() int {
	return int(s.code.Load())
}

type client struct {
	api    v1.API
	status *statusRecorder
}

// newClient builds a Prometheus API client rooted at the endpoint address.
func newClient(opts ports.ConnectOptions) (*client, error) {
	if opts.Host == "" {
		return nil, errors.NewDomainError(errors.ErrMissingEndpoint, fmt.Errorf("hostname is empty"))
	}

	tlsConfig, err := opts.SSL.TLSConfig()
	if err != nil {
		return nil, errors.NewDomainError(errors.ErrInvalidCertificateAuthority, err)
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsConfig,
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: opts.ReadTimeout,
		DialContext:           (&net.Dialer{Timeout: opts.OpenTimeout}).DialContext,
	}
	if opts.HTTPProxy != "" {
		proxy, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy %q: %w", opts.HTTPProxy, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	recorder := &statusRecorder{next: transport}
	var rt http.RoundTripper = recorder
	if opts.Bearer != "" {
		rt = config.NewAuthorizationCredentialsRoundTripper("Bearer", config.NewInlineSecret(opts.Bearer), rt)
	} else if opts.Username != "" {
		rt = config.NewBasicAuthRoundTripper(config.NewInlineSecret(opts.Username), config.NewInlineSecret(opts.Password), rt)
	}

	c, err := api.NewClient(api.Config{
		Address:      ports.APIEndpoint(opts.Host, opts.Port, "").String(),
		RoundTripper: rt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &client{api: v1.NewAPI(c), status: recorder}, nil
}

// classify maps a failed API call onto the domain error taxonomy using the
// recorded HTTP status.
func (c *client) classify(err error) error {
	switch c.status.lastStatus() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewDomainError(errors.ErrInvalidCredentials, err)
	default:
		return errors.NewDomainError(errors.ErrUnreachable, err)
	}
}
