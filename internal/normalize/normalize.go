// Package normalize turns raw Admin API records into sink events. Every
// function here is pure.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

const (
	Namespace = "duo"

	KeyEventType = "eventtype"
	KeyTimestamp = "timestamp"
	KeyHost      = "host"

	SummarySourceType = Namespace + ":info_summary"
)

var (
	ErrMissingField = errors.New("normalize: missing required field")
	ErrBadTimestamp = errors.New("normalize: invalid timestamp")
)

// Metadata is the per-run routing context stamped on every event.
type Metadata struct {
	Index  string
	Source string
	Stream string
}

// Record strips eventtype, timestamp and host from raw and serializes the rest
// as the payload. raw is left untouched.
func Record(raw model.RawRecord, meta Metadata) (model.Event, error) {
	etype, err := requireString(raw, KeyEventType)
	if err != nil {
		return model.Event{}, err
	}
	host, err := requireString(raw, KeyHost)
	if err != nil {
		return model.Event{}, err
	}
	tsRaw, ok := raw[KeyTimestamp]
	if !ok || tsRaw == nil {
		return model.Event{}, fmt.Errorf("%w: %s", ErrMissingField, KeyTimestamp)
	}
	ts, err := Timestamp(tsRaw)
	if err != nil {
		return model.Event{}, err
	}

	rest := raw.Clone()
	delete(rest, KeyEventType)
	delete(rest, KeyTimestamp)
	delete(rest, KeyHost)
	payload, err := json.Marshal(rest)
	if err != nil {
		return model.Event{}, fmt.Errorf("normalize: marshal payload: %w", err)
	}

	return model.Event{
		Time:       ts,
		Host:       host,
		Index:      meta.Index,
		SourceType: SourceType(etype),
		Source:     meta.Source,
		Stream:     meta.Stream,
		Payload:    payload,
	}, nil
}

// Summary wraps the account info object. It carries no timestamp of its own,
// so the run start is used.
func Summary(info model.RawRecord, host string, at time.Time, meta Metadata) (model.Event, error) {
	if info == nil {
		info = model.RawRecord{}
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return model.Event{}, fmt.Errorf("normalize: marshal summary: %w", err)
	}
	return model.Event{
		Time:       at.Unix(),
		Host:       host,
		Index:      meta.Index,
		SourceType: SummarySourceType,
		Source:     meta.Source,
		Stream:     meta.Stream,
		Payload:    payload,
	}, nil
}

func SourceType(eventType string) string {
	return Namespace + ":" + eventType
}

// Timestamp accepts the numeric shapes a JSON decoder can produce and returns
// whole epoch seconds.
func Timestamp(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return checkTS(n)
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, t.String())
		}
		return fromFloat(f)
	case float64:
		return fromFloat(t)
	case int:
		return checkTS(int64(t))
	case int64:
		return checkTS(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, t)
		}
		return checkTS(n)
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrBadTimestamp, v)
}

func fromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, f)
	}
	return checkTS(int64(f))
}

func checkTS(n int64) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %d", ErrBadTimestamp, n)
	}
	return n, nil
}

func requireString(raw model.RawRecord, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return s, nil
}
