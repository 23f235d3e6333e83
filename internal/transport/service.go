// Package transport carries normalized events over gRPC. The wire messages
// are protobuf well-known types, so no generated stubs are needed.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

const (
	ServiceName = "duolog.sink.v1.EventSink"
	pushMethod  = "/" + ServiceName + "/Push"
)

// EventSinkServer receives pushed events. A nil error acknowledges the event.
type EventSinkServer interface {
	Push(ctx context.Context, ev model.Event) error
}

// EventSinkFunc adapts a plain function to EventSinkServer.
type EventSinkFunc func(ctx context.Context, ev model.Event) error

func (f EventSinkFunc) Push(ctx context.Context, ev model.Event) error { return f(ctx, ev) }

var eventSinkDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventSinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "duolog/sink/v1/sink.proto",
}

// RegisterEventSinkServer attaches impl to s.
func RegisterEventSinkServer(s grpc.ServiceRegistrar, impl EventSinkServer) {
	s.RegisterService(&eventSinkDesc, impl)
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		ev, err := DecodeEvent(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if err := srv.(EventSinkServer).Push(ctx, ev); err != nil {
			return nil, err
		}
		return &emptypb.Empty{}, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pushMethod}
	return interceptor(ctx, in, info, call)
}

/*──────── codec ───────*/

var errBadEvent = errors.New("malformed event")

// EncodeEvent maps ev onto a Struct. The payload travels as a JSON string so
// number precision and key order survive the round trip.
func EncodeEvent(ev model.Event) (*structpb.Struct, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return structpb.NewStruct(map[string]any{
		"time":       ev.Time,
		"host":       ev.Host,
		"index":      ev.Index,
		"source":     ev.Source,
		"sourcetype": ev.SourceType,
		"stream":     ev.Stream,
		"event":      string(payload),
	})
}

func DecodeEvent(s *structpb.Struct) (model.Event, error) {
	f := s.GetFields()
	tv, ok := f["time"]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: time missing", errBadEvent)
	}
	ts := tv.GetNumberValue()
	if ts != math.Trunc(ts) || ts < 0 {
		return model.Event{}, fmt.Errorf("%w: time %v", errBadEvent, ts)
	}
	st := f["sourcetype"].GetStringValue()
	if st == "" {
		return model.Event{}, fmt.Errorf("%w: sourcetype missing", errBadEvent)
	}
	payload := f["event"].GetStringValue()
	if payload == "" {
		payload = "{}"
	}
	if !json.Valid([]byte(payload)) {
		return model.Event{}, fmt.Errorf("%w: event is not JSON", errBadEvent)
	}
	return model.Event{
		Time:       int64(ts),
		Host:       f["host"].GetStringValue(),
		Index:      f["index"].GetStringValue(),
		Source:     f["source"].GetStringValue(),
		SourceType: st,
		Stream:     f["stream"].GetStringValue(),
		Payload:    json.RawMessage(payload),
	}, nil
}
