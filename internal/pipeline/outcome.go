package pipeline

import (
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/checkpoint"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"
	StatusDisabled    Status = "disabled"
	StatusRateLimited Status = "rate_limited"
	StatusFetchFailed Status = "fetch_failed"
	StatusEmitFailed  Status = "emit_failed"
	StatusSaveFailed  Status = "save_failed"
)

// Outcome is what happened to one stream during a run.
type Outcome struct {
	Stream           duo.Stream
	Status           Status
	LowerBound       *int64
	CheckpointBefore checkpoint.Cursor
	CheckpointAfter  checkpoint.Cursor // Valid only when this run saved one
	Emitted          int
	Dropped          int
	Err              error
	Started          time.Time
	Finished         time.Time
}

func (o Outcome) Failed() bool {
	switch o.Status {
	case StatusFetchFailed, StatusEmitFailed, StatusSaveFailed:
		return true
	}
	return false
}

type Report struct {
	RunID    string
	Name     string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Fatal is true when a checkpoint could not be written.
func (r Report) Fatal() bool {
	for _, o := range r.Outcomes {
		if o.Status == StatusSaveFailed {
			return true
		}
	}
	return false
}

func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

func (r Report) Emitted() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Emitted
	}
	return n
}

func (r Report) Outcome(s duo.Stream) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Stream == s {
			return o, true
		}
	}
	return Outcome{}, false
}
