package deploy

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Unmarshal parses yaml bytes into a mutable config.
//
// Seal result with `TrySeal()` to get the immutable `DeployConfig`.
func Unmarshal(buf []byte) (*DeployConfigMarshall, error) {
	m := &DeployConfigMarshall{}
	if err := yaml.Unmarshal(buf, m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadDeployConfigMarshall reads a yaml file into a mutable config.
func LoadDeployConfigMarshall(filepath string) (*DeployConfigMarshall, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(buf)
}

// LoadDeployConfig reads a yaml file and seals it.
//
// This function CAN CAUSE PANIC when the file misses required fields.
func LoadDeployConfig(filepath string) (*DeployConfig, error) {
	m, err := LoadDeployConfigMarshall(filepath)
	if err != nil {
		return nil, err
	}
	return TrySeal(m), nil
}
