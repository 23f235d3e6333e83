package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/checkpoint"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/history"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/logging"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/pipeline"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/telemetry"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

var ErrNoHistory = errors.New("engine: run history not configured")

type Engine struct {
	plan     *pipeline.Plan
	history  *history.DB
	metrics  *telemetry.Metrics
	recorder *pipeline.StateRecorder
}

// Run performs one collection pass. The error is pipeline.ErrFatal (wrapped)
// when a checkpoint could not be written; per-stream failures only show up
// in the report.
func (e *Engine) Run(ctx context.Context) (pipeline.Report, error) {
	rc := pipeline.ResolveRunConfig(e.plan.Source, time.Now(), uuid.NewString())
	log := logging.L().With("input", rc.Name, "run_id", rc.RunID)
	log.Info("run started", "host", rc.Host, "sinks", strings.Join(e.plan.Runner.SinkNames(), ","))

	rep, err := e.plan.Runner.Run(ctx, rc)

	if e.recorder != nil {
		for _, s := range duo.Streams() {
			log.Info("trace", "stream", s.Name(), "path", strings.Join(e.recorder.Path(s.Name()), " > "))
		}
	}
	if herr := e.recordHistory(ctx, rep); herr != nil {
		log.Warn("history write failed", "err", herr)
	}
	if perr := e.metrics.Push(e.plan.Spec.Metrics.Pushgateway, e.plan.Spec.Metrics.Job, rc.Name); perr != nil {
		log.Warn("metrics push failed", "err", perr)
	}

	log.Info("run finished",
		"emitted", rep.Emitted(),
		"failed_streams", len(rep.Failed()),
		"duration", rep.Finished.Sub(rep.Started).String())
	return rep, err
}

func (e *Engine) recordHistory(ctx context.Context, rep pipeline.Report) error {
	if e.history == nil || len(rep.Outcomes) == 0 {
		return nil
	}
	rows := make([]history.StreamRun, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		row := history.StreamRun{
			RunID:      rep.RunID,
			Input:      rep.Name,
			Stream:     o.Stream.Name(),
			Status:     string(o.Status),
			LowerBound: o.LowerBound,
			Emitted:    o.Emitted,
			Dropped:    o.Dropped,
			StartedAt:  o.Started,
			FinishedAt: o.Finished,
		}
		if o.CheckpointBefore.Valid {
			v := o.CheckpointBefore.Value
			row.CheckpointBefore = &v
		}
		if o.CheckpointAfter.Valid {
			v := o.CheckpointAfter.Value
			row.CheckpointAfter = &v
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}
	// the run context may already be cancelled; the audit row still matters
	return e.history.RecordRuns(context.WithoutCancel(ctx), rows)
}

// Validate runs the pre-flight reachability check against the Admin API.
func (e *Engine) Validate(ctx context.Context) error {
	return e.plan.Client.Ping(ctx)
}

// StreamCheckpoint pairs a stream with its stored cursor.
type StreamCheckpoint struct {
	Stream duo.Stream
	Cursor checkpoint.Cursor
}

func (e *Engine) Checkpoints() []StreamCheckpoint {
	var out []StreamCheckpoint
	for _, s := range duo.Streams() {
		if !s.Incremental() {
			continue
		}
		out = append(out, StreamCheckpoint{Stream: s, Cursor: e.plan.Runner.Store().Load(s.Name())})
	}
	return out
}

func (e *Engine) History(ctx context.Context, limit int) ([]history.StreamRun, error) {
	if e.history == nil {
		return nil, ErrNoHistory
	}
	return e.history.Recent(ctx, e.plan.Source.Name, limit)
}

func (e *Engine) Close() error {
	err := e.plan.Close()
	if e.history != nil {
		if herr := e.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}
