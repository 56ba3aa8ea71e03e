package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// mergeYAMLFile decodes the YAML document at path onto cfg, overwriting
// only the fields the file sets (yaml.v3 leaves absent keys untouched).
// Used for the single optional overlay file (archiplane.yaml); unlike the
// teacher's base/env/local file hierarchy, archiplane is env-var-first and
// only supports one overlay on top of it.
func mergeYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
