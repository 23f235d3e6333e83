// Package hec posts events to a Splunk HTTP Event Collector endpoint.
package hec

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

const eventPath = "/services/collector/event"

type Config struct {
	URL                string        `yaml:"url"` // https://splunk:8088
	Token              string        `yaml:"token"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`

	Client *http.Client `yaml:"-"`
}

// StatusError is returned when the collector answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hec-sink: status %d: %s", e.StatusCode, e.Body)
}

type driver struct {
	endpoint string
	token    string
	http     *http.Client
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("hec-sink: expected Config, got %T", raw)
	}
	if c.URL == "" || c.Token == "" {
		return fmt.Errorf("hec-sink: url and token are required")
	}
	d.endpoint = strings.TrimRight(c.URL, "/") + eventPath
	d.token = c.Token

	d.http = c.Client
	if d.http == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if c.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
		}
		d.http = &http.Client{Timeout: timeout, Transport: tr}
	}
	return nil
}

func (d *driver) Push(ctx context.Context, ev model.Event) error {
	if d.http == nil {
		return fmt.Errorf("hec-sink: not configured")
	}
	body, err := json.Marshal(ev.HEC())
	if err != nil {
		return fmt.Errorf("hec-sink: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hec-sink: %w", err)
	}
	req.Header.Set("Authorization", "Splunk "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("hec-sink: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (d *driver) Close() error {
	if d.http != nil {
		d.http.CloseIdleConnections()
	}
	return nil
}

func init() { sink.Register("hec", func() sink.Adapter { return &driver{} }) }
