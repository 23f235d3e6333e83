package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/checkpoint"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/logging"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/normalize"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/telemetry"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

// ErrFatal means a checkpoint write failed. The run stops at that point.
var ErrFatal = errors.New("pipeline: fatal")

// Source is what the runner pulls from; *duo.Fetcher satisfies it.
type Source interface {
	Fetch(ctx context.Context, s duo.Stream, lowerBound int64) (duo.Batch, error)
	Summary(ctx context.Context) (duo.SummaryBatch, error)
	Host() string
}

type namedSink struct {
	name string
	sink.Adapter
}

type Runner struct {
	source   Source
	store    checkpoint.Store
	sinks    []namedSink
	metrics  *telemetry.Metrics
	recorder *StateRecorder
	now      func() time.Time
}

func NewRunner() *Runner { return &Runner{now: time.Now} }

func (r *Runner) SetSource(s Source)                  { r.source = s }
func (r *Runner) SetStore(s checkpoint.Store)         { r.store = s }
func (r *Runner) AddSink(name string, s sink.Adapter) { r.sinks = append(r.sinks, namedSink{name, s}) }
func (r *Runner) SetMetrics(m *telemetry.Metrics)     { r.metrics = m }
func (r *Runner) SetRecorder(rec *StateRecorder)      { r.recorder = rec }
func (r *Runner) Store() checkpoint.Store             { return r.store }

func (r *Runner) SinkNames() []string {
	out := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		out[i] = s.name
	}
	return out
}

func (r *Runner) Sinks() []sink.Adapter {
	out := make([]sink.Adapter, len(r.sinks))
	for i, s := range r.sinks {
		out[i] = s.Adapter
	}
	return out
}

func (r *Runner) record(s duo.Stream, st State) { r.recorder.Record(s.Name(), st) }

func (r *Runner) streamLog(rc RunConfig, s duo.Stream) *slog.Logger {
	return logging.L().With("input", rc.Name, "run_id", rc.RunID, "stream", s.Name())
}

// Run processes every stream once, in order. A failing stream does not stop
// the others; only a checkpoint write failure (ErrFatal) or a cancelled ctx
// ends the run early.
func (r *Runner) Run(ctx context.Context, rc RunConfig) (Report, error) {
	rep := Report{RunID: rc.RunID, Name: rc.Name, Started: r.now()}
	switch {
	case r.source == nil:
		return rep, errors.New("runner: no source configured")
	case r.store == nil:
		return rep, errors.New("runner: no checkpoint store configured")
	case len(r.sinks) == 0:
		return rep, errors.New("runner: no sinks configured")
	}

	for _, s := range duo.Streams() {
		if err := ctx.Err(); err != nil {
			rep.Finished = r.now()
			return rep, err
		}
		out := r.runStream(ctx, rc, s)
		out.Finished = r.now()
		rep.Outcomes = append(rep.Outcomes, out)
		r.metrics.StreamDone(s.Name(), string(out.Status), out.Emitted, out.Dropped)

		if out.Status == StatusSaveFailed {
			rep.Finished = r.now()
			r.metrics.RunFinished(rep.Finished.Sub(rep.Started))
			return rep, fmt.Errorf("%w: %s: %v", ErrFatal, s.Name(), out.Err)
		}
	}
	rep.Finished = r.now()
	r.metrics.RunFinished(rep.Finished.Sub(rep.Started))
	return rep, nil
}

func (r *Runner) runStream(ctx context.Context, rc RunConfig, s duo.Stream) Outcome {
	log := r.streamLog(rc, s)
	out := Outcome{Stream: s, Started: r.now()}
	r.record(s, StateIdle)

	if !rc.Enabled[s] {
		log.Info(s.OptionKey() + " not enabled")
		out.Status = StatusDisabled
		return out
	}
	meta := normalize.Metadata{Index: rc.Index, Source: rc.Source(), Stream: s.Name()}
	if !s.Incremental() {
		return r.runSummary(ctx, rc, s, meta, out)
	}

	cur := r.store.Load(s.Name())
	out.CheckpointBefore = cur
	r.record(s, StateCheckpointLoaded)

	lb := duo.LowerBound(cur, rc.Started, rc.History)
	out.LowerBound = &lb
	if !cur.Valid {
		log.Info("no checkpoint, starting from history window",
			"history_days", int(rc.History/(24*time.Hour)), "mintime", lb)
	}

	r.record(s, StateFetching)
	batch, err := r.source.Fetch(ctx, s, lb)
	if err != nil {
		r.record(s, StateFetchFailed)
		log.Error("fetch failed", "mintime", lb, "err", err)
		out.Status, out.Err = StatusFetchFailed, err
		return out
	}
	if batch.RateLimited {
		r.record(s, StateRateLimited)
		log.Info("rate limited, stream skipped until next run", "mintime", lb)
		out.Status = StatusRateLimited
		return out
	}

	r.record(s, StateRecordsReady)
	log.Info(fmt.Sprintf("%s retrieved %d events from host %s", s.Name(), len(batch.Records), r.source.Host()))
	if len(batch.Records) == 0 {
		out.Status = StatusNoData
		return out
	}

	r.record(s, StateEmitting)
	var (
		maxTS   int64
		haveMax bool
	)
	for i, raw := range batch.Records {
		ev, err := normalize.Record(raw, meta)
		if err != nil {
			log.Error("dropping record", "err", err)
			out.Dropped++
			continue
		}
		if err := r.emit(ctx, ev); err != nil {
			r.record(s, StateEmitFailed)
			log.Error("emit failed, stopping stream", "event_time", ev.Time, "emitted", out.Emitted, "err", err)
			out.Status, out.Err = StatusEmitFailed, err

			// Nothing at or after the earliest unsent record may be skipped
			// next time, including records the loop never reached.
			if haveMax {
				candidate := min(maxTS, earliestPending(batch.Records[i+1:], ev.Time)-1)
				if serr := r.advance(log, s, cur, candidate, &out); serr != nil {
					out.Status, out.Err = StatusSaveFailed, serr
				}
			}
			return out
		}
		out.Emitted++
		if !haveMax || ev.Time > maxTS {
			maxTS, haveMax = ev.Time, true
		}
	}
	r.record(s, StateAllEmitted)
	out.Status = StatusOK

	if !haveMax {
		log.Warn("no record could be normalized, checkpoint unchanged", "dropped", out.Dropped)
		return out
	}
	if err := r.advance(log, s, cur, maxTS, &out); err != nil {
		out.Status, out.Err = StatusSaveFailed, err
	}
	return out
}

func (r *Runner) runSummary(ctx context.Context, rc RunConfig, s duo.Stream, meta normalize.Metadata, out Outcome) Outcome {
	log := r.streamLog(rc, s)

	r.record(s, StateFetching)
	sb, err := r.source.Summary(ctx)
	if err != nil {
		r.record(s, StateFetchFailed)
		log.Error("fetch failed", "err", err)
		out.Status, out.Err = StatusFetchFailed, err
		return out
	}
	if sb.RateLimited {
		r.record(s, StateRateLimited)
		log.Info("rate limited, stream skipped until next run")
		out.Status = StatusRateLimited
		return out
	}
	r.record(s, StateRecordsReady)

	ev, err := normalize.Summary(sb.Info, sb.Host, rc.Started, meta)
	if err != nil {
		log.Error("dropping summary", "err", err)
		out.Dropped = 1
		out.Status = StatusOK
		return out
	}

	r.record(s, StateEmitting)
	if err := r.emit(ctx, ev); err != nil {
		r.record(s, StateEmitFailed)
		log.Error("emit failed", "err", err)
		out.Status, out.Err = StatusEmitFailed, err
		return out
	}
	r.record(s, StateAllEmitted)
	log.Info("info summary emitted", "host", sb.Host)
	out.Emitted = 1
	out.Status = StatusOK
	return out
}

// earliestPending returns the lowest timestamp among floor and the records
// not yet attempted. Records without a usable timestamp would be dropped
// anyway and are ignored.
func earliestPending(rest []model.RawRecord, floor int64) int64 {
	for _, raw := range rest {
		ts, err := normalize.Timestamp(raw["timestamp"])
		if err == nil && ts < floor {
			floor = ts
		}
	}
	return floor
}

// emit hands ev to every sink in order. The event only counts once all of
// them accepted it.
func (r *Runner) emit(ctx context.Context, ev model.Event) error {
	for _, s := range r.sinks {
		if err := s.Push(ctx, ev); err != nil {
			return fmt.Errorf("sink %s: %w", s.name, err)
		}
	}
	return nil
}

// advance persists candidate if it moves the cursor forward. A write failure
// is logged at FATAL and returned.
func (r *Runner) advance(log *slog.Logger, s duo.Stream, cur checkpoint.Cursor, candidate int64, out *Outcome) error {
	if candidate < 0 || (cur.Valid && candidate <= cur.Value) {
		log.Info("checkpoint not advanced", "checkpoint", cur.String(), "candidate", candidate)
		return nil
	}
	if err := r.store.Save(s.Name(), candidate); err != nil {
		logging.Fatal("checkpoint write failed", "stream", s.Name(), "timestamp", candidate, "err", err)
		return err
	}
	out.CheckpointAfter = checkpoint.Cursor{Value: candidate, Valid: true}
	r.record(s, StateCheckpointSaved)
	r.metrics.CheckpointSaved(s.Name(), candidate)
	log.Info("checkpoint saved", "timestamp", candidate)
	return nil
}
