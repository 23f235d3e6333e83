package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

type Client struct {
	cc *grpc.ClientConn
}

// Dial connects lazily; the first Push or Check establishes the connection.
// Without options the channel is plaintext.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Push(ctx context.Context, ev model.Event) error {
	in, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return c.cc.Invoke(ctx, pushMethod, in, new(emptypb.Empty))
}

// Check reports whether the receiver's sink service is SERVING.
func (c *Client) Check(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("receiver status %s", resp.GetStatus())
	}
	return nil
}

func (c *Client) Close() error { return c.cc.Close() }
