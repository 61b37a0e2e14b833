package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
link:
  tempo: 96.5
  start_stop_sync: true
midi:
  port: iac
  retry_delay: 2s
engine:
  period: 10ms
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Link.Tempo != 96.5 || !cfg.Link.StartStopSync {
		t.Errorf("link = %+v", cfg.Link)
	}
	if cfg.Link.Quantum != 4 || !cfg.Link.Enabled {
		t.Errorf("defaults lost: %+v", cfg.Link)
	}
	if cfg.MIDI.Port != "iac" || cfg.MIDI.RetryDelay != 2*time.Second || cfg.MIDI.Retries != 3 {
		t.Errorf("midi = %+v", cfg.MIDI)
	}
	if cfg.Engine.Period != 10*time.Millisecond {
		t.Errorf("period = %s", cfg.Engine.Period)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []string{
		"link:\n  tempo: 0\n",
		"link:\n  quantum: -4\n",
		"engine:\n  period: 0s\n",
		"midi:\n  retries: -1\n",
		"link: [not, a, map]\n",
	}
	for _, data := range tests {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFrom(path); err == nil {
			t.Errorf("accepted %q", data)
		}
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Link.Tempo = 140
	cfg.MIDI.Port = "Launchpad"
	cfg.UI.Palette = "/tmp/p.gpl"
	cfg.Debug = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "retry_delay: 500ms") {
		t.Errorf("durations not written as text:\n%s", raw)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Fatalf("loaded %+v, want %+v", got, cfg)
	}
}
