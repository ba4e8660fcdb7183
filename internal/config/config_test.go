package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.JS8Port != 2442 {
		t.Fatalf("JS8Port = %d, want 2442", cfg.JS8Port)
	}
	if cfg.AckWait() != 60*time.Second || cfg.MoveResponseWait() != 120*time.Second {
		t.Fatalf("wait durations = %v/%v, want 60s/120s", cfg.AckWait(), cfg.MoveResponseWait())
	}
	if cfg.MaxRetries != 3 || !cfg.AutoAccept {
		t.Fatalf("retry defaults wrong: %+v", cfg)
	}
}

func TestLoadNormalizesCallsigns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "local_callsign: op1call\nremote_callsign: \" op2call \"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LocalCallsign != "OP1CALL" || cfg.RemoteCallsign != "OP2CALL" {
		t.Fatalf("callsigns = %q/%q, want uppercase trimmed", cfg.LocalCallsign, cfg.RemoteCallsign)
	}
	// Unspecified keys keep their defaults.
	if cfg.JS8Host != "127.0.0.1" || cfg.AckWaitSeconds != 60 {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"same callsigns", "local_callsign: OP1CALL\nremote_callsign: OP1CALL\n"},
		{"empty local", "local_callsign: \"\"\n"},
		{"bad port", "js8_port: 99999\n"},
		{"zero ack wait", "ack_wait_seconds: 0\n"},
		{"negative retries", "max_retries: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load accepted invalid config:\n%s", tc.yaml)
			}
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("local_callsign: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}
