package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lodestar-catalog/lodestar/internal/registry"
)

// EntityRegistryFile is the YAML document binding entity types to their
// aspect slots. The definition language does not carry entity bindings; this
// file does.
type EntityRegistryFile struct {
	Entities []EntityEntry `yaml:"entities"`
}

// EntityEntry is one entity type declaration
type EntityEntry struct {
	Name      string   `yaml:"name"`
	KeyAspect string   `yaml:"keyAspect"`
	Aspects   []string `yaml:"aspects"`
}

// LoadEntityRegistry reads and validates the entity registry file
func LoadEntityRegistry(path string) ([]registry.EntityBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity registry: %w", err)
	}
	return ParseEntityRegistry(data)
}

// ParseEntityRegistry parses entity registry YAML
func ParseEntityRegistry(data []byte) ([]registry.EntityBinding, error) {
	var file EntityRegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse entity registry: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("entity registry declares no entities")
	}

	seen := make(map[string]bool, len(file.Entities))
	bindings := make([]registry.EntityBinding, 0, len(file.Entities))
	for _, e := range file.Entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entity registry entry is missing a name")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("entity type %q declared twice", e.Name)
		}
		seen[e.Name] = true

		if e.KeyAspect == "" {
			return nil, fmt.Errorf("entity type %q has no keyAspect", e.Name)
		}
		aspects := e.Aspects
		if !contains(aspects, e.KeyAspect) {
			aspects = append([]string{e.KeyAspect}, aspects...)
		}

		bindings = append(bindings, registry.EntityBinding{
			Name:      e.Name,
			KeyAspect: e.KeyAspect,
			Aspects:   aspects,
		})
	}
	return bindings, nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
