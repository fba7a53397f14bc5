package utils

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how structured command output is printed.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Emit writes data to w as JSON or YAML. OutputText is rejected; callers
// render text themselves.
func Emit(w io.Writer, format OutputFormat, data interface{}) error {
	var (
		out []byte
		err error
	)
	switch format {
	case OutputJSON:
		out, err = MarshalJSON(data)
		if err == nil {
			out = append(out, '\n')
		}
	case OutputYAML:
		out, err = MarshalYAML(data)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// MarshalJSON marshals the provided data as indented JSON.
func MarshalJSON(data interface{}) ([]byte, error) {
	jsonData, err := sonic.ConfigStd.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return jsonData, nil
}

// MarshalYAML marshals the provided data as YAML.
func MarshalYAML(data interface{}) ([]byte, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return yamlData, nil
}
