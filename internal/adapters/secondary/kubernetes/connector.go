// Package kubernetes connects to cluster APIs with client-go.
package kubernetes

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"

	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// KubevirtGroup is the API group served by clusters with virtualization installed.
const KubevirtGroup = "kubevirt.io"

const userAgent = "clusterauth"

const defaultAPIPath = "/api"

// Connector implements ports.ClusterConnector. Connect probes the API root so a
// returned connection has already proven the credentials.
type Connector struct{}

var _ ports.ClusterConnector = (*Connector)(nil)

// NewConnector creates a connector.
func NewConnector() *Connector {
	return &Connector{}
}

// RESTConfig translates opts into a client-go configuration.
func RESTConfig(opts ports.ConnectOptions) (*rest.Config, error) {
	if opts.Host == "" {
		return nil, errors.NewDomainError(errors.ErrMissingEndpoint, fmt.Errorf("hostname is empty"))
	}

	base := ports.APIEndpoint(opts.Host, opts.Port, "")
	cfg := &rest.Config{
		Host:      base.String(),
		APIPath:   opts.Path,
		UserAgent: userAgent,
		Timeout:   opts.ReadTimeout,
	}
	if opts.APIVersion != "" {
		cfg.ContentConfig.GroupVersion = &schema.GroupVersion{
			Group:   apiGroup(opts.Path),
			Version: opts.APIVersion,
		}
	}

	if opts.Bearer != "" {
		cfg.BearerToken = opts.Bearer
	} else {
		cfg.Username = opts.Username
		cfg.Password = opts.Password
	}

	if opts.SSL.Verifies() {
		if _, err := opts.SSL.TLSConfig(); err != nil {
			return nil, errors.NewDomainError(errors.ErrInvalidCertificateAuthority, err)
		}
		cfg.TLSClientConfig.CAData = []byte(opts.SSL.CAData)
	} else {
		cfg.TLSClientConfig.Insecure = true
	}

	if opts.HTTPProxy != "" {
		proxy, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy %q: %w", opts.HTTPProxy, err)
		}
		cfg.Proxy = http.ProxyURL(proxy)
	}

	if opts.OpenTimeout > 0 {
		cfg.Dial = (&net.Dialer{Timeout: opts.OpenTimeout}).DialContext
	}
	return cfg, nil
}

// Connect builds a discovery client for opts and requests the versioned API
// root, e.g. /api/v1 or /apis/servicecatalog.k8s.io/v1beta1.
func (c *Connector) Connect(ctx context.Context, opts ports.ConnectOptions) (ports.ClusterConnection, error) {
	cfg, err := RESTConfig(opts)
	if err != nil {
		return nil, err
	}

	client, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, errors.NewDomainError(errors.ErrUnreachable, fmt.Errorf("failed to create discovery client: %w", err))
	}

	conn := &Connection{client: client}
	if _, err := conn.get(ctx, versionedRoot(opts)); err != nil {
		return nil, err
	}
	return conn, nil
}

// apiGroup returns the group named by a /apis/<group> path. The core /api path
// has no group.
func apiGroup(apiPath string) string {
	group, ok := strings.CutPrefix(apiPath, "/apis/")
	if !ok {
		return ""
	}
	return strings.Trim(group, "/")
}

func versionedRoot(opts ports.ConnectOptions) string {
	root := opts.Path
	if root == "" {
		root = defaultAPIPath
	}
	return path.Join(root, opts.APIVersion)
}

// Connection is a probed connection to one cluster API.
type Connection struct {
	client discovery.DiscoveryInterface
}

var _ ports.ClusterConnection = (*Connection)(nil)

func (c *Connection) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.client.RESTClient().Get().AbsPath(path).Do(ctx).Raw()
	if err != nil {
		return nil, Classify(err)
	}
	return body, nil
}

// ServerVersion returns the gitVersion reported by /version.
func (c *Connection) ServerVersion(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/version")
	if err != nil {
		return "", err
	}
	var info version.Info
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("failed to decode server version: %w", err)
	}
	return info.GitVersion, nil
}

// SupportsVirtualization reports whether the kubevirt.io group is served.
func (c *Connection) SupportsVirtualization(ctx context.Context) (bool, error) {
	_, err := c.client.RESTClient().Get().AbsPath("/apis", KubevirtGroup).Do(ctx).Raw()
	switch {
	case err == nil:
		return true, nil
	case apierrors.IsNotFound(err):
		return false, nil
	default:
		return false, Classify(err)
	}
}

// Classify maps client-go failures onto the domain error taxonomy. Rejected
// credentials are never reported as unreachable and vice versa.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var derr *errors.DomainError
	if stderrors.As(err, &derr) {
		return err
	}
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return errors.NewDomainError(errors.ErrInvalidCredentials, err)
	}
	return errors.NewDomainError(errors.ErrUnreachable, err)
}
