package cli

import (
	"regexp"
)

var redactionPatterns = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// Bearer tokens
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED]"},

	// Authorization headers
	{regexp.MustCompile(`Authorization:\s*[^\s]+`), "Authorization: [REDACTED]"},

	// Service account tokens outside a header
	{regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`), "[TOKEN REDACTED]"},

	// Secrets in config-style output
	{regexp.MustCompile(`auth_key[\s:=]+[^\s,}]+`), "auth_key=[REDACTED]"},
	{regexp.MustCompile(`[?&]token=[A-Za-z0-9\-._~+/]+=*`), "&token=[REDACTED]"},
	{regexp.MustCompile(`[Pp]assword[\s:=]+[^\s]+`), "password=[REDACTED]"},

	// Certificate data (PEM blocks)
	{regexp.MustCompile(`-----BEGIN [A-Z ]+-----[^-]+-----END [A-Z ]+-----`), "[PEM REDACTED]"},

	// Environment overrides carrying secrets
	{regexp.MustCompile(`CLUSTERAUTH_[A-Z_]*(KEY|TOKEN|PASSWORD)[A-Z_]*=\S+`), "[SECRET REDACTED]"},
}

func redactSensitiveInfo(message string) string {
	result := message
	for _, p := range redactionPatterns {
		result = p.pattern.ReplaceAllString(result, p.replace)
	}
	return result
}

// RedactError redacts credentials from an error message.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return redactSensitiveInfo(err.Error())
}

// RedactString redacts credentials from s.
func RedactString(s string) string {
	return redactSensitiveInfo(s)
}
