package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/transport"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

func TestGRPCSink_DeliversThroughRegistry(t *testing.T) {
	received := make(chan model.Event, 1)
	srv, err := transport.StartServer("127.0.0.1:0", transport.EventSinkFunc(func(_ context.Context, ev model.Event) error {
		received <- ev
		return nil
	}))
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	defer srv.Stop()

	a, err := sink.NewAdapter("grpc")
	require.NoError(t, err)
	require.NoError(t, a.Configure(Config{Addr: srv.Addr()}))
	defer a.Close()

	require.NoError(t, a.Push(context.Background(), model.Event{Time: 1010, SourceType: "duo:administrator"}))
	ev := <-received
	assert.Equal(t, int64(1010), ev.Time)
	assert.Equal(t, "duo:administrator", ev.SourceType)
}

func TestGRPCSink_ConfigureValidates(t *testing.T) {
	d := &driver{}
	assert.Error(t, d.Configure(Config{}))
	assert.Error(t, d.Configure("x"))
	assert.Error(t, d.Push(context.Background(), model.Event{}))
	assert.NoError(t, d.Close())
}
