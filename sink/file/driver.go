// Package file writes events as NDJSON to a size-rotated file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

type Config struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"` // 0 → lumberjack default (100)
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type driver struct {
	mu sync.Mutex
	w  *lumberjack.Logger
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return fmt.Errorf("file-sink: path is required")
	}
	d.w = &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	}
	return nil
}

func (d *driver) Push(_ context.Context, ev model.Event) error {
	line, err := json.Marshal(ev.HEC())
	if err != nil {
		return fmt.Errorf("file-sink: marshal: %w", err)
	}
	line = append(line, '\n')

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return fmt.Errorf("file-sink: not configured")
	}
	if _, err := d.w.Write(line); err != nil {
		return fmt.Errorf("file-sink: write: %w", err)
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return nil
	}
	return d.w.Close()
}

func init() { sink.Register("file", func() sink.Adapter { return &driver{} }) }
