package duo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/checkpoint"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

// Batch is the result of one incremental fetch.
type Batch struct {
	Stream      Stream
	LowerBound  int64
	Records     []model.RawRecord // in the order the API returned them
	RateLimited bool
}

// SummaryBatch is the result of the non-incremental summary fetch.
type SummaryBatch struct {
	Info        model.RawRecord
	Host        string
	RateLimited bool
}

// LowerBound is checkpoint+1 when a checkpoint exists, otherwise the start of
// the history window.
func LowerBound(cur checkpoint.Cursor, runStart time.Time, window time.Duration) int64 {
	if cur.Valid {
		return cur.Value + 1
	}
	return runStart.Unix() - int64(window/time.Second)
}

type Fetcher struct {
	client LogClient
}

func NewFetcher(client LogClient) *Fetcher { return &Fetcher{client: client} }

func (f *Fetcher) Host() string { return f.client.Host() }

// Fetch requests records with timestamp >= lowerBound. A 429 is not an error:
// it yields an empty batch with RateLimited set.
func (f *Fetcher) Fetch(ctx context.Context, s Stream, lowerBound int64) (Batch, error) {
	b := Batch{Stream: s, LowerBound: lowerBound}

	fetch, err := f.fetchFunc(s)
	if err != nil {
		return b, err
	}
	recs, err := fetch(ctx, lowerBound)
	if errors.Is(err, ErrRateLimited) {
		b.RateLimited = true
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("fetch %s: %w", s.Name(), err)
	}
	b.Records = recs
	return b, nil
}

func (f *Fetcher) Summary(ctx context.Context) (SummaryBatch, error) {
	out := SummaryBatch{Host: f.client.Host()}
	info, err := f.client.InfoSummary(ctx)
	if errors.Is(err, ErrRateLimited) {
		out.RateLimited = true
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("fetch %s: %w", StreamSummary.Name(), err)
	}
	out.Info = info
	return out, nil
}

func (f *Fetcher) fetchFunc(s Stream) (func(context.Context, int64) ([]model.RawRecord, error), error) {
	switch s {
	case StreamAuthentication:
		return f.client.AuthenticationLog, nil
	case StreamTelephony:
		return f.client.TelephonyLog, nil
	case StreamAdministrator:
		return f.client.AdministratorLog, nil
	case StreamSummary:
		return nil, fmt.Errorf("duo: %s is not an incremental stream", s.Name())
	}
	return nil, fmt.Errorf("duo: unknown stream %d", int(s))
}
