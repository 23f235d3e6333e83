package model

import "encoding/json"

// Event is the normalized record handed to sinks.
type Event struct {
	Time       int64           // epoch seconds
	Host       string          // Admin API host that produced the record
	Index      string          // destination index
	SourceType string          // "duo:<eventtype>"
	Source     string          // input identity, e.g. duo://prod
	Stream     string          // stream name, e.g. authentication_log
	Payload    json.RawMessage // record minus eventtype/timestamp/host
}

// HECEvent is the Splunk HTTP Event Collector envelope. Line-oriented sinks
// write events in this shape too.
type HECEvent struct {
	Time       int64           `json:"time"`
	Host       string          `json:"host,omitempty"`
	Index      string          `json:"index,omitempty"`
	Source     string          `json:"source,omitempty"`
	SourceType string          `json:"sourcetype"`
	Event      json.RawMessage `json:"event"`
}

func (e Event) HEC() HECEvent {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return HECEvent{
		Time:       e.Time,
		Host:       e.Host,
		Index:      e.Index,
		Source:     e.Source,
		SourceType: e.SourceType,
		Event:      payload,
	}
}
