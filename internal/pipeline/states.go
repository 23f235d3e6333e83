package pipeline

import "sync"

// State is one step of a stream's progress through a run.
type State string

const (
	StateIdle             State = "idle"
	StateCheckpointLoaded State = "checkpoint_loaded"
	StateFetching         State = "fetching"
	StateRateLimited      State = "rate_limited"
	StateFetchFailed      State = "fetch_failed"
	StateRecordsReady     State = "records_ready"
	StateEmitting         State = "emitting"
	StateEmitFailed       State = "emit_failed"
	StateAllEmitted       State = "all_emitted"
	StateCheckpointSaved  State = "checkpoint_saved"
)

func (s State) Name() string { return string(s) }

// StateRecorder tracks transitions per stream. Used by tests and by
// `duolog run --trace`.
type StateRecorder struct {
	mu    sync.Mutex
	paths map[string][]string
}

func NewStateRecorder() *StateRecorder {
	return &StateRecorder{paths: make(map[string][]string)}
}

func (r *StateRecorder) Record(stream string, s State) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.paths[stream] = append(r.paths[stream], s.Name())
	r.mu.Unlock()
}

func (r *StateRecorder) Path(stream string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths[stream]...)
}
