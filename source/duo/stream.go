package duo

import "fmt"

// Stream is one independently checkpointed log category.
type Stream int

const (
	StreamAuthentication Stream = iota
	StreamTelephony
	StreamAdministrator
	StreamSummary
)

// Streams returns every stream in processing order.
func Streams() []Stream {
	return []Stream{StreamAuthentication, StreamTelephony, StreamAdministrator, StreamSummary}
}

// Name is the checkpoint key and routing name.
func (s Stream) Name() string {
	switch s {
	case StreamAuthentication:
		return "authentication_log"
	case StreamTelephony:
		return "telephony_log"
	case StreamAdministrator:
		return "administrator_log"
	case StreamSummary:
		return "summary"
	}
	return fmt.Sprintf("stream(%d)", int(s))
}

// OptionKey is the operator flag that enables the stream.
func (s Stream) OptionKey() string {
	if s == StreamSummary {
		return "get_summary"
	}
	return "get_" + s.Name()
}

// Incremental reports whether the stream is fetched from a checkpoint.
func (s Stream) Incremental() bool { return s != StreamSummary }

func (s Stream) String() string { return s.Name() }

// ParseStream maps a stream name back to its variant.
func ParseStream(name string) (Stream, error) {
	for _, s := range Streams() {
		if s.Name() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("duo: unknown stream %q", name)
}
