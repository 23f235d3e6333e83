package duo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTLSClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "https://")
	return NewClient(host, HMACSigner{IKey: "DIXXXX", SKey: "secret"}, WithHTTPClient(srv.Client()))
}

func TestClient_AuthenticationLog_SendsMintimeAndDecodes(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		w.Write([]byte(`{"stat":"OK","response":[
			{"eventtype":"authentication","timestamp":1010,"host":"api-x.duosecurity.com","username":"alice"},
			{"eventtype":"authentication","timestamp":1020,"host":"api-x.duosecurity.com","username":"bob"}]}`))
	})

	recs, err := c.AuthenticationLog(context.Background(), 1001)
	if err != nil {
		t.Fatalf("AuthenticationLog: %v", err)
	}
	if gotPath != "/admin/v1/logs/authentication" || gotQuery != "mintime=1001" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("request not signed: %q", gotAuth)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	ts, ok := recs[1]["timestamp"].(json.Number)
	if !ok || ts.String() != "1020" {
		t.Fatalf("timestamp should decode as json.Number 1020, got %#v", recs[1]["timestamp"])
	}
}

func TestClient_StreamPaths(t *testing.T) {
	var paths []string
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"stat":"OK","response":[]}`))
	})
	ctx := context.Background()
	if _, err := c.TelephonyLog(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AdministratorLog(ctx, 1); err != nil {
		t.Fatal(err)
	}
	want := []string{"/admin/v1/logs/telephony", "/admin/v1/logs/administrator"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("call %d: want %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestClient_RateLimitedIsDistinguishable(t *testing.T) {
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"stat":"FAIL","code":42901,"message":"Too Many Requests"}`))
	})

	_, err := c.AuthenticationLog(context.Background(), 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 42901 {
		t.Fatalf("want APIError code 42901, got %#v", err)
	}
}

func TestClient_OtherFailuresAreNotRateLimited(t *testing.T) {
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"stat":"FAIL","code":40103,"message":"Invalid signature"}`))
	})

	_, err := c.TelephonyLog(context.Background(), 1)
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Fatalf("want plain API error, got %v", err)
	}
}

func TestClient_InfoSummary(t *testing.T) {
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/v1/info/summary" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"stat":"OK","response":{"user_count":42,"integration_count":3}}`))
	})

	info, err := c.InfoSummary(context.Background())
	if err != nil {
		t.Fatalf("InfoSummary: %v", err)
	}
	if info["user_count"].(json.Number).String() != "42" {
		t.Fatalf("unexpected summary %#v", info)
	}
}

func TestClient_Ping(t *testing.T) {
	c := newTLSClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v2/ping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("ping must not be signed")
		}
		w.Write([]byte(`{"stat":"OK","response":{"time":1700000000}}`))
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestClient_PingRejects(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"stat not OK": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"stat":"FAIL"}`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>hello</html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTLSClient(t, h)
			if err := c.Ping(context.Background()); !errors.Is(err, ErrPreflight) {
				t.Fatalf("want ErrPreflight, got %v", err)
			}
		})
	}
}

func TestClient_PingUnreachable(t *testing.T) {
	c := NewClient("127.0.0.1:1", nil)
	if err := c.Ping(context.Background()); !errors.Is(err, ErrPreflight) {
		t.Fatalf("want ErrPreflight, got %v", err)
	}
}

func TestClient_TimeoutSurvivesCustomHTTPClient(t *testing.T) {
	shared := &http.Client{Timeout: 3 * time.Second}
	cfg := Config{APIHost: "api-test.duosecurity.com", Timeout: 15 * time.Second}

	c := NewClientFromConfig(cfg, WithHTTPClient(shared))
	if c.http.Timeout != 15*time.Second {
		t.Fatalf("configured timeout lost, got %v", c.http.Timeout)
	}
	if shared.Timeout != 3*time.Second {
		t.Fatalf("caller's client was modified: %v", shared.Timeout)
	}

	c = NewClient(cfg.APIHost, nil, WithTimeout(5*time.Second), WithHTTPClient(shared))
	if c.http.Timeout != 5*time.Second || c.http == shared {
		t.Fatalf("timeout must apply to a copy, got %v", c.http.Timeout)
	}
}
