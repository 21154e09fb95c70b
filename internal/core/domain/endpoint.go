package domain

// Endpoint is one network endpoint of a managed cluster.
type Endpoint struct {
	Role                 Role             `mapstructure:"role" json:"role" yaml:"role" validate:"required,endpoint_role"`
	Hostname             string           `mapstructure:"hostname" json:"hostname" yaml:"hostname" validate:"required"`
	Port                 int              `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	SecurityProtocol     SecurityProtocol `mapstructure:"security_protocol" json:"security_protocol,omitempty" yaml:"security_protocol,omitempty" validate:"security_protocol"`
	CertificateAuthority string           `mapstructure:"certificate_authority" json:"-" yaml:"-" validate:"omitempty,pem"`
	// VerifySSL is the legacy flag consulted only when no protocol is declared.
	VerifySSL *bool `mapstructure:"verify_ssl" json:"verify_ssl,omitempty" yaml:"verify_ssl,omitempty"`
}

// EffectivePort returns the declared port, or the role's default port.
func (e Endpoint) EffectivePort() int {
	if e.Port == 0 {
		return e.Role.DefaultPort()
	}
	return e.Port
}
