package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// directory scanned for scene files
	Root      string  `yaml:"root"`
	StreamFPS float64 `yaml:"stream_fps"`
	// websocket streams stop after this long, zero means never
	StreamLimit time.Duration `yaml:"stream_limit"`
}

type AnimationConfig struct {
	// used when an animation does not specify its own rate
	DefaultTicksPerSecond float64 `yaml:"default_ticks_per_second"`
}

type ExportConfig struct {
	// sampling rate for formats that need baked curves
	SampleRate float64 `yaml:"sample_rate"`
	// scene root node name used when a file has several roots
	RootName string `yaml:"root_name"`
}

type Config struct {
	Encoding  string          `yaml:"encoding"`
	Server    ServerConfig    `yaml:"server"`
	Animation AnimationConfig `yaml:"animation"`
	Export    ExportConfig    `yaml:"export"`
}

func Default() *Config {
	return &Config{
		Encoding: DefaultEncoding,
		Server: ServerConfig{
			Addr:      ":8000",
			Root:      ".",
			StreamFPS: 30,
		},
		Animation: AnimationConfig{
			DefaultTicksPerSecond: 25,
		},
		Export: ExportConfig{
			SampleRate: 30,
			RootName:   "RootNode",
		},
	}
}

// Load reads path over the defaults. Empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Cannot parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %q", path)
	}
	return cfg, nil
}

// MaxStreamFPS bounds server.stream_fps so a frame lasts at least a millisecond.
const MaxStreamFPS = 1000

func (c *Config) Validate() error {
	if !(c.Server.StreamFPS > 0 && c.Server.StreamFPS <= MaxStreamFPS) {
		return errors.Errorf("server.stream_fps must be in (0, %v], got %v", MaxStreamFPS, c.Server.StreamFPS)
	}
	if !(c.Animation.DefaultTicksPerSecond > 0) {
		return errors.Errorf("animation.default_ticks_per_second must be positive, got %v", c.Animation.DefaultTicksPerSecond)
	}
	if !(c.Export.SampleRate > 0) {
		return errors.Errorf("export.sample_rate must be positive, got %v", c.Export.SampleRate)
	}
	return nil
}

// Apply installs process wide settings.
func (c *Config) Apply() error {
	return SetEncoding(c.Encoding)
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
