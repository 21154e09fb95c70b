package domain

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// SecurityProtocol is the transport security declared on an endpoint.
type SecurityProtocol string

const (
	ProtocolUnset             SecurityProtocol = ""
	SSLWithValidation         SecurityProtocol = "ssl-with-validation"
	SSLWithValidationCustomCA SecurityProtocol = "ssl-with-validation-custom-ca"
	SSLWithoutValidation      SecurityProtocol = "ssl-without-validation"
)

// IsSet reports whether a protocol was declared.
func (p SecurityProtocol) IsSet() bool {
	return strings.TrimSpace(string(p)) != ""
}

// IsKnown reports whether p is unset or one of the declared protocols.
func (p SecurityProtocol) IsKnown() bool {
	switch p {
	case ProtocolUnset, SSLWithValidation, SSLWithValidationCustomCA, SSLWithoutValidation:
		return true
	default:
		return false
	}
}

// String returns the protocol name.
func (p SecurityProtocol) String() string {
	return string(p)
}

// SecurityProtocolDecodeHook normalises protocol strings while decoding configuration.
func SecurityProtocolDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(SecurityProtocol("")) {
			return data, nil
		}
		str, ok := data.(string)
		if !ok {
			return data, nil
		}
		return SecurityProtocol(strings.ToLower(strings.TrimSpace(str))), nil
	}
}

// VerifyMode tells whether peer certificates are validated.
// The zero value verifies.
type VerifyMode int

const (
	VerifyPeer VerifyMode = iota
	VerifyNone
)

// String returns the mode name.
func (m VerifyMode) String() string {
	if m == VerifyNone {
		return "verify-none"
	}
	return "verify-peer"
}

// SSLPolicy is the resolved transport security for one endpoint.
// An empty CAData means the platform default trust store.
type SSLPolicy struct {
	VerifyMode VerifyMode `json:"verify_mode"`
	CAData     string     `json:"-"`
}

// Verifies reports whether peer validation is enforced.
func (p SSLPolicy) Verifies() bool {
	return p.VerifyMode == VerifyPeer
}

// UsesDefaultTrust reports whether the platform trust store applies.
func (p SSLPolicy) UsesDefaultTrust() bool {
	return p.Verifies() && p.CAData == ""
}

// TLSConfig materialises the policy. A malformed custom CA is reported here.
func (p SSLPolicy) TLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !p.Verifies() {
		cfg.InsecureSkipVerify = true //nolint:gosec // ssl-without-validation was requested explicitly
		return cfg, nil
	}
	if p.CAData != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(p.CAData)) {
			return nil, fmt.Errorf("certificate authority contains no valid PEM certificates")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
