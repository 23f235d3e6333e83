package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"fatal":   LevelFatal,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFatal_RendersFatalLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info", true)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}, "info", false) })

	Fatal("checkpoint write failed", "stream", "authentication_log")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v (%q)", err, buf.String())
	}
	if rec["level"] != "FATAL" {
		t.Fatalf("want level FATAL, got %v", rec["level"])
	}
	if rec["stream"] != "authentication_log" {
		t.Fatalf("missing stream attr: %v", rec)
	}
}

func TestSetOutput_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "error", false)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}, "info", false) })

	L().Info("dropped")
	L().Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output: %q", out)
	}
}
