// sink/stdout/driver.go
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	Pretty bool      `yaml:"pretty"` // indent each object
	Out    io.Writer `yaml:"-"`      // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	mu  sync.Mutex // guards enc
	enc *json.Encoder
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	d.enc = json.NewEncoder(out)
	if c.Pretty {
		d.enc.SetIndent("", "  ")
	}
	return nil
}

func (d *driver) Push(_ context.Context, ev model.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enc == nil {
		return fmt.Errorf("stdout-sink: not configured")
	}
	if err := d.enc.Encode(ev.HEC()); err != nil {
		return fmt.Errorf("stdout-sink: %w", err)
	}
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
