package model

// RawRecord is one log entry as returned by the Admin API. Required keys are
// eventtype, timestamp and host; everything else is carried through untouched.
type RawRecord map[string]any

// Clone returns a shallow copy so callers can remove keys without touching the
// original.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
