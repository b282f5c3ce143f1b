package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "warn", Format: FormatJSON}, &buf)

	logger.Info().Msg("hidden")
	cl := Component(logger, "test")
	cl.Warn().Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" {
		t.Errorf("message = %v, want shown", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want test", entry["component"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestNewWithWriterBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "loud", Format: FormatJSON}, &buf)

	logger.Debug().Msg("debug")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info, got %q", buf.String())
	}
	logger.Info().Msg("info")
	if buf.Len() == 0 {
		t.Error("info should be written")
	}
}

func TestNewWithWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(DefaultConfig(), &buf)
	logger.Info().Msg("hello")

	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("pretty output missing message: %q", buf.String())
	}
	if bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		t.Errorf("pretty output should not be JSON: %q", buf.String())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg       Config
		wantError bool
	}{
		{DefaultConfig(), false},
		{Config{}, false},
		{Config{Level: "debug", Format: FormatJSON}, false},
		{Config{Level: "chatty"}, true},
		{Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.wantError && err == nil {
			t.Errorf("%+v: expected error, got nil", tt.cfg)
		}
		if !tt.wantError && err != nil {
			t.Errorf("%+v: unexpected error: %v", tt.cfg, err)
		}
	}
}
