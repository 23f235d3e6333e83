package pipeline

import (
	"fmt"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/checkpoint"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/config"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/spec"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"

	// drivers self-register
	_ "github.com/cschmidt0121/TA-DUOSecurity2FA/sink/file"
	_ "github.com/cschmidt0121/TA-DUOSecurity2FA/sink/grpc"
	_ "github.com/cschmidt0121/TA-DUOSecurity2FA/sink/hec"
	_ "github.com/cschmidt0121/TA-DUOSecurity2FA/sink/kafka"
	_ "github.com/cschmidt0121/TA-DUOSecurity2FA/sink/stdout"
)

// Plan is a compiled collector.yml: the parsed files plus a wired Runner.
type Plan struct {
	Spec   spec.File
	Source duo.Config
	Client *duo.Client
	Runner *Runner
}

// Compile loads collector.yml and the Duo options it points at, then wires
// source, checkpoint store and sinks. Sinks are opened here; Close the plan
// when done.
func Compile(path string, opts ...duo.Option) (*Plan, error) {
	cfg, confPath, err := config.LoadCollectorSpec(path)
	if err != nil {
		return nil, err
	}
	if cfg.Source.Kind != "duo" {
		return nil, fmt.Errorf("unsupported source %q", cfg.Source.Kind)
	}
	dc, err := config.LoadDuoConfig(confPath)
	if err != nil {
		return nil, err
	}
	if err := dc.Validate(); err != nil {
		return nil, err
	}

	client := duo.NewClientFromConfig(dc, opts...)
	r := NewRunner()
	r.SetSource(duo.NewFetcher(client))
	r.SetStore(checkpoint.NewFileStore(dc.CheckpointDir))

	p := &Plan{Spec: cfg, Source: dc, Client: client, Runner: r}
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			p.Close()
			return nil, err
		}
		if err := sDrv.Configure(sinkConfig(cfg.SinkConfigs, name)); err != nil {
			p.Close()
			return nil, fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, sDrv)
	}
	return p, nil
}

func sinkConfig(c spec.SinkConfigs, name string) any {
	switch name {
	case "stdout":
		return c.Stdout
	case "file":
		return c.File
	case "kafka":
		return c.Kafka
	case "hec":
		return c.HEC
	case "grpc":
		return c.GRPC
	}
	return nil
}

// Close releases every sink; the first error wins.
func (p *Plan) Close() error {
	var first error
	for _, s := range p.Runner.Sinks() {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
