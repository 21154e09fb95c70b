package monitoring

import (
	"context"
	"encoding/pem"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

const token = "metrics-token"

func newPrometheusServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handle := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	handle("/api/v1/status/buildinfo", `{"status":"success","data":{"version":"2.53.0","revision":"abc","branch":"HEAD","buildUser":"ci","buildDate":"20240101","goVersion":"go1.22"}}`)
	handle("/api/v1/alerts", `{"status":"success","data":{"alerts":[]}}`)

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func optionsFor(t *testing.T, srv *httptest.Server, bearer string, ssl domain.SSLPolicy) ports.ConnectOptions {
	t.Helper()
	addr, ok := srv.Listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return ports.ConnectOptions{
		Host:        addr.IP.String(),
		Port:        addr.Port,
		Path:        "/api",
		Role:        domain.RolePrometheus,
		Bearer:      bearer,
		SSL:         ssl,
		OpenTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	}
}

func trusted(srv *httptest.Server) domain.SSLPolicy {
	ca := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	return domain.SSLPolicy{CAData: string(ca)}
}

func TestBuildInfoProbe(t *testing.T) {
	srv := newPrometheusServer(t)
	endpoint := domain.Endpoint{Role: domain.RolePrometheus, Hostname: "prom"}

	err := BuildInfoProbe{}.Probe(context.Background(), endpoint, optionsFor(t, srv, token, trusted(srv)))
	assert.NoError(t, err)

	err = BuildInfoProbe{}.Probe(context.Background(), endpoint, optionsFor(t, srv, "wrong", trusted(srv)))
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
	assert.False(t, errors.IsRetryable(err))

	err = BuildInfoProbe{}.Probe(context.Background(), endpoint, optionsFor(t, srv, token, domain.SSLPolicy{}))
	assert.ErrorIs(t, err, errors.ErrUnreachable, "untrusted certificate")

	err = BuildInfoProbe{}.Probe(context.Background(), endpoint, optionsFor(t, srv, token, domain.SSLPolicy{VerifyMode: domain.VerifyNone}))
	assert.NoError(t, err)
}

func TestBuildInfoProbe_Unreachable(t *testing.T) {
	srv := newPrometheusServer(t)
	opts := optionsFor(t, srv, token, trusted(srv))
	srv.Close()

	err := BuildInfoProbe{}.Probe(context.Background(), domain.Endpoint{}, opts)
	assert.ErrorIs(t, err, errors.ErrUnreachable)
	assert.True(t, errors.IsRetryable(err))
}

func TestAlertsManager(t *testing.T) {
	srv := newPrometheusServer(t)
	system, err := domain.NewManagedSystem("42", "ocp", nil, nil)
	require.NoError(t, err)
	manager := NewAlertsManager(nil)

	verifier, err := manager.Ensure(context.Background(), system, optionsFor(t, srv, token, trusted(srv)))
	require.NoError(t, err)
	assert.NoError(t, verifier.VerifyCredentials(context.Background()))

	verifier, err = manager.Ensure(context.Background(), system, optionsFor(t, srv, "wrong", trusted(srv)))
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.VerifyCredentials(context.Background()), errors.ErrInvalidCredentials)
}

func TestNewClient_Errors(t *testing.T) {
	_, err := newClient(ports.ConnectOptions{})
	assert.ErrorIs(t, err, errors.ErrMissingEndpoint)

	_, err = newClient(ports.ConnectOptions{Host: "prom", SSL: domain.SSLPolicy{CAData: "not pem"}})
	assert.ErrorIs(t, err, errors.ErrInvalidCertificateAuthority)
	assert.False(t, errors.IsRetryable(err))
}
