package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	// Assigned first: the event methods have pointer receivers, which is
	// how every binary uses the constructor before config is loaded.
	logger := newLogger(&buf, "prod", "api-server")
	logger.Error().Str("store", "memory").Msg("config load error")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "api-server" || line["level"] != "error" || line["message"] != "config load error" {
		t.Fatalf("unexpected fields %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Fatalf("missing timestamp in %v", line)
	}
}

func TestNewLogger_DevConsole(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "dev", "seed")
	logger.Info().Msg("seed starting")

	out := buf.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "seed starting") || !strings.Contains(out, "service=seed") {
		t.Fatalf("unexpected console output %q", out)
	}
}
