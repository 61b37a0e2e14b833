package config

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LinkConfig configures the shared tempo clock
type LinkConfig struct {
	Tempo         float64 `yaml:"tempo"`
	Quantum       float64 `yaml:"quantum"`
	Enabled       bool    `yaml:"enabled"`
	StartStopSync bool    `yaml:"start_stop_sync"`
}

// MIDIConfig selects the output port
type MIDIConfig struct {
	Port       string        `yaml:"port,omitempty"` // case-insensitive, substring match allowed
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Disabled   bool          `yaml:"disabled,omitempty"`
}

// EngineConfig tunes the tick loop
type EngineConfig struct {
	Period time.Duration `yaml:"period"`
}

// UIConfig stores front-end preferences
type UIConfig struct {
	Palette string `yaml:"palette,omitempty"` // GPL file, built-in palette if empty
}

// Config is the main configuration structure
type Config struct {
	Link   LinkConfig   `yaml:"link"`
	MIDI   MIDIConfig   `yaml:"midi"`
	Engine EngineConfig `yaml:"engine"`
	UI     UIConfig     `yaml:"ui,omitempty"`
	Debug  bool         `yaml:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Link: LinkConfig{
			Tempo:   120,
			Quantum: 4,
			Enabled: true,
		},
		MIDI: MIDIConfig{
			Retries:    3,
			RetryDelay: 500 * time.Millisecond,
		},
		Engine: EngineConfig{
			Period: 20 * time.Millisecond,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-eremit"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

// Validate checks the values the engine cannot run with
func (c *Config) Validate() error {
	if !(c.Link.Tempo > 0) || math.IsInf(c.Link.Tempo, 0) {
		return errors.Errorf("link.tempo must be positive, got %v", c.Link.Tempo)
	}
	if !(c.Link.Quantum > 0) || math.IsInf(c.Link.Quantum, 0) {
		return errors.Errorf("link.quantum must be positive, got %v", c.Link.Quantum)
	}
	if c.Engine.Period <= 0 {
		return errors.Errorf("engine.period must be positive, got %s", c.Engine.Period)
	}
	if c.MIDI.Retries < 0 {
		return errors.Errorf("midi.retries must not be negative, got %d", c.MIDI.Retries)
	}
	if c.MIDI.RetryDelay < 0 {
		return errors.Errorf("midi.retry_delay must not be negative, got %s", c.MIDI.RetryDelay)
	}
	return nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Marshal encodes the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return data, nil
}
