// Package grpc forwards events to a remote receiver speaking the
// duolog.sink.v1.EventSink service.
package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/transport"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

type Config struct {
	Addr    string        `yaml:"addr"`    // host:port
	Timeout time.Duration `yaml:"timeout"` // per push, default 10s
}

type driver struct {
	c       *transport.Client
	timeout time.Duration
}

func (d *driver) Configure(raw any) error {
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("grpc-sink: expected Config, got %T", raw)
	}
	if cfg.Addr == "" {
		return fmt.Errorf("grpc-sink: addr is required")
	}
	c, err := transport.Dial(cfg.Addr)
	if err != nil {
		return fmt.Errorf("grpc-sink: %w", err)
	}
	d.c = c
	d.timeout = cfg.Timeout
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}
	return nil
}

func (d *driver) Push(ctx context.Context, ev model.Event) error {
	if d.c == nil {
		return fmt.Errorf("grpc-sink: not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.c.Push(ctx, ev); err != nil {
		return fmt.Errorf("grpc-sink: %w", err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.c == nil {
		return nil
	}
	err := d.c.Close()
	d.c = nil
	return err
}

func init() { sink.Register("grpc", func() sink.Adapter { return &driver{} }) }
