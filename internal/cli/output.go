package cli

import (
	"encoding/json"
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// render writes v in format. text is delegated to writeText.
func render(w io.Writer, format string, v interface{}, writeText func(io.Writer) error) error {
	switch format {
	case FormatText, "":
		return writeText(w)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("%w: failed to encode output as JSON: %v", ErrInternal, err)
		}
		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("%w: failed to encode output as YAML: %v", ErrInternal, err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: unsupported output format %q, use 'text', 'json' or 'yaml'", ErrUsage, format)
	}
}
