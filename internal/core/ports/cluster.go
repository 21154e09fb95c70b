package ports

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/sufield/clusterauth/internal/core/domain"
)

// ConnectOptions carries everything needed to open a connection to one endpoint.
// Building it never touches the network.
type ConnectOptions struct {
	Host       string
	Port       int
	Path       string
	APIVersion string

	Role     domain.Role
	Bearer   string
	Username string
	Password string

	SSL       domain.SSLPolicy
	HTTPProxy string

	OpenTimeout time.Duration
	ReadTimeout time.Duration
}

// Address returns host:port.
func (o ConnectOptions) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// URL returns the https URL of the endpoint including Path.
func (o ConnectOptions) URL() *url.URL {
	return APIEndpoint(o.Host, o.Port, o.Path)
}

// APIEndpoint builds the https URL of a cluster API. A zero port is left out.
func APIEndpoint(host string, port int, path string) *url.URL {
	u := &url.URL{Scheme: "https", Host: host, Path: path}
	if port > 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return u
}

// ClusterConnection is a live, already-probed connection to a cluster API.
type ClusterConnection interface {
	// ServerVersion queries the API version endpoint.
	ServerVersion(ctx context.Context) (string, error)
	// SupportsVirtualization reports whether the virtualization API group is served.
	SupportsVirtualization(ctx context.Context) (bool, error)
}

// ClusterConnector opens connections to a cluster API. Implementations classify
// failures as ErrUnreachable or ErrInvalidCredentials.
type ClusterConnector interface {
	Connect(ctx context.Context, opts ConnectOptions) (ClusterConnection, error)
}
