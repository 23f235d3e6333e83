package pipeline

import (
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

// RunConfig is everything one invocation needs to know. It is built fresh
// per run and never stored on the Runner.
type RunConfig struct {
	RunID   string
	Name    string
	Index   string
	Host    string
	History time.Duration
	Enabled map[duo.Stream]bool
	Started time.Time
}

func ResolveRunConfig(cfg duo.Config, now time.Time, runID string) RunConfig {
	enabled := make(map[duo.Stream]bool, len(duo.Streams()))
	for _, s := range duo.Streams() {
		enabled[s] = cfg.Enabled(s)
	}
	return RunConfig{
		RunID:   runID,
		Name:    cfg.Name,
		Index:   cfg.Index,
		Host:    cfg.APIHost,
		History: cfg.HistoryWindow(),
		Enabled: enabled,
		Started: now,
	}
}

// Source is the event source identity, e.g. duo://prod.
func (rc RunConfig) Source() string { return "duo://" + rc.Name }
