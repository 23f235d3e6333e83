package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/spec"
)

const SupportedSchema = "v1"

// LoadCollectorSpec parses collector.yml, validates schema_version, and
// returns the parsed spec and an absolute path to the source config (if set).
func LoadCollectorSpec(path string) (spec.File, string, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("collector schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "duo"
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = []string{"stdout"}
	}
	confPath := cfg.Source.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(path), confPath))
		if err != nil {
			return cfg, "", err
		}
		confPath = abs
	}
	return cfg, confPath, nil
}
