package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the deployment file looked up when no path is given.
const DefaultFile = "nimbus.yaml"

// LoadFile reads and parses deployment options from a YAML file.
// Flags bound by the CLI layer override whatever the file sets.
func LoadFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode deployment file: %w", err)
	}

	return &opts, nil
}

// FindFile returns the default deployment file if it exists in the current
// directory.
func FindFile() (string, error) {
	if _, err := os.Stat(DefaultFile); err != nil {
		return "", fmt.Errorf("%s not found in current directory", DefaultFile)
	}
	return DefaultFile, nil
}
