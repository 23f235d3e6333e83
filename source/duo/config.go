package duo

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "DUOLOG_SOURCE__"

// Config mirrors the operator option map handed over by the host on every
// invocation. Stream flags stay strings: the host passes "1", "true" or
// "enabled" and anything else means off.
type Config struct {
	Name          string        `koanf:"name"`
	APIHost       string        `koanf:"api_host"`
	IKey          string        `koanf:"ikey"`
	SKey          string        `koanf:"skey"`
	Index         string        `koanf:"index"`
	History       int           `koanf:"history"` // days
	CheckpointDir string        `koanf:"checkpoint_dir"`
	Timeout       time.Duration `koanf:"timeout"`

	GetAuthenticationLog string `koanf:"get_authentication_log"`
	GetTelephonyLog      string `koanf:"get_telephony_log"`
	GetAdministratorLog  string `koanf:"get_administrator_log"`
	GetSummary           string `koanf:"get_summary"`
}

// LoadConfig merges YAML (if present) with env-vars
// (prefix `DUOLOG_SOURCE__`, e.g. DUOLOG_SOURCE__API_HOST).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("duo schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Name == "" {
		c.Name = "duo"
	}
	if c.Index == "" {
		c.Index = "main"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

func (c Config) Validate() error {
	var missing []string
	if c.APIHost == "" {
		missing = append(missing, "api_host")
	}
	if c.IKey == "" {
		missing = append(missing, "ikey")
	}
	if c.SKey == "" {
		missing = append(missing, "skey")
	}
	if c.CheckpointDir == "" {
		missing = append(missing, "checkpoint_dir")
	}
	if len(missing) > 0 {
		return fmt.Errorf("duo: missing required options: %s", strings.Join(missing, ", "))
	}
	if c.History < 0 {
		return fmt.Errorf("duo: history must be >= 0 days, got %d", c.History)
	}
	return nil
}

// Enabled reports the operator flag for s.
func (c Config) Enabled(s Stream) bool {
	switch s {
	case StreamAuthentication:
		return IsEnabled(c.GetAuthenticationLog)
	case StreamTelephony:
		return IsEnabled(c.GetTelephonyLog)
	case StreamAdministrator:
		return IsEnabled(c.GetAdministratorLog)
	case StreamSummary:
		return IsEnabled(c.GetSummary)
	}
	return false
}

// HistoryWindow is the first-run lookback.
func (c Config) HistoryWindow() time.Duration {
	return time.Duration(c.History) * 24 * time.Hour
}

// IsEnabled accepts the boolean-like values the host scheduler sends.
func IsEnabled(v string) bool {
	switch v {
	case "1", "true", "enabled":
		return true
	}
	return false
}
