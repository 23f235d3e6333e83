package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

func startReceiver(t *testing.T, impl EventSinkServer) *Client {
	t.Helper()
	srv, err := StartServer("127.0.0.1:0", impl)
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Stop)

	c, err := Dial(srv.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPushRoundTrip(t *testing.T) {
	var (
		mu  sync.Mutex
		got []model.Event
	)
	c := startReceiver(t, EventSinkFunc(func(_ context.Context, ev model.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}

	want := model.Event{
		Time:       1020,
		Host:       "api-x.duosecurity.com",
		Index:      "main",
		Source:     "duo://prod",
		SourceType: "duo:authentication",
		Stream:     "authentication_log",
		Payload:    json.RawMessage(`{"big":12345678901234567890,"foo":"bar"}`),
	}
	if err := c.Push(ctx, want); err != nil {
		t.Fatalf("Push: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("want 1 event, got %d", len(got))
	}
	if got[0].Time != want.Time || got[0].SourceType != want.SourceType || got[0].Stream != want.Stream {
		t.Fatalf("metadata mismatch: %+v", got[0])
	}
	if string(got[0].Payload) != string(want.Payload) {
		t.Fatalf("payload changed in transit: %s", got[0].Payload)
	}
}

func TestPushRejectionSurfaces(t *testing.T) {
	c := startReceiver(t, EventSinkFunc(func(context.Context, model.Event) error {
		return status.Error(codes.Unavailable, "disk full")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Push(ctx, model.Event{Time: 1, SourceType: "duo:telephony"})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("want Unavailable, got %v", err)
	}
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	cases := map[string]map[string]any{
		"no time":       {"sourcetype": "duo:x"},
		"fractional":    {"time": 1.5, "sourcetype": "duo:x"},
		"no sourcetype": {"time": 1},
		"bad payload":   {"time": 1, "sourcetype": "duo:x", "event": "{nope"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := structpb.NewStruct(fields)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := DecodeEvent(s); !errors.Is(err, errBadEvent) {
				t.Fatalf("want errBadEvent, got %v", err)
			}
		})
	}
}

func TestEncodeEventDefaultsPayload(t *testing.T) {
	s, err := EncodeEvent(model.Event{Time: 7, SourceType: "duo:x"})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := DecodeEvent(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(ev.Payload) != "{}" || ev.Time != 7 {
		t.Fatalf("unexpected decode: %+v", ev)
	}
}
