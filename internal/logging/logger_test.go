package logging

import (
	"bytes"
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
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestNewProdWritesText(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "prod", "info", "clima-service")
	l.Debug("hidden")
	l.Info("weather updated", "city", "Oslo")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, "app=clima-service") || !strings.Contains(out, "city=Oslo") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewDevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "dev", "debug", "clima").Debug("located")
	if !strings.Contains(buf.String(), "located") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}
