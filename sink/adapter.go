package sink

import (
	"context"
	"fmt"
	"sort"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

// Adapter is the common behaviour every sink exposes. Push returns only after
// the destination confirmed the event, or with the reason it did not.
type Adapter interface {
	Configure(any) error                            // driver-specific YAML ⇒ struct
	Push(ctx context.Context, ev model.Event) error // deliver one event
	Close() error                                   // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

// Names lists registered drivers, sorted.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
