package transform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MetadataFileName is the declarative metadata file colocated with each
// layer's SQL files.
const MetadataFileName = "_schema.yaml"

// moduleMeta holds the per-module entry of a layer metadata file.
type moduleMeta struct {
	Description                  string   `yaml:"description"`
	DependsOn                    []string `yaml:"depends_on"`
	Enabled                      *bool    `yaml:"enabled"`
	RequiresExternalConnectivity bool     `yaml:"requires_external_connectivity"`
	SourceFiles                  []string `yaml:"source_files"`
}

// loadLayerMetadata reads a layer's metadata file. A missing file yields an
// empty map; a malformed file yields an empty map and an error the caller is
// expected to downgrade to a warning. Discovery must never fail solely
// because metadata is missing or broken.
func loadLayerMetadata(path string) (map[string]moduleMeta, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]moduleMeta{}, nil
		}
		return map[string]moduleMeta{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta := map[string]moduleMeta{}
	if err := yaml.Unmarshal(content, &meta); err != nil {
		return map[string]moduleMeta{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if meta == nil {
		meta = map[string]moduleMeta{}
	}
	return meta, nil
}

// apply fills a Module from its metadata entry, using defaults where the
// entry is absent or fields are unset.
func (m moduleMeta) apply(mod *Module) {
	mod.Description = m.Description
	mod.DependsOn = m.DependsOn
	mod.RequiresExternalConnectivity = m.RequiresExternalConnectivity
	mod.SourceFiles = m.SourceFiles
	mod.Enabled = m.Enabled == nil || *m.Enabled
}
