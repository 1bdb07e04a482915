package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ECS       ECSConfig       `toml:"ecs"`
	Loop      LoopConfig      `toml:"loop"`
	Scene     SceneConfig     `toml:"scene"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
	Profile   ProfileConfig   `toml:"profile"`
}

// ECSConfig is fixed at startup; the core never grows past MaxEntities.
type ECSConfig struct {
	MaxEntities int `toml:"max_entities"`
}

type LoopConfig struct {
	TickRate  time.Duration `toml:"tick_rate"`
	MaxFrames uint64        `toml:"max_frames"` // 0 = run until signalled
}

type SceneConfig struct {
	Path string `toml:"path"`
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Dir  string `toml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.ECS.MaxEntities <= 0 {
		errs = append(errs, fmt.Errorf("ecs.max_entities must be positive, got %d", c.ECS.MaxEntities))
	}
	if c.Loop.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("loop.tick_rate must be positive, got %v", c.Loop.TickRate))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not json or console", c.Logging.Format))
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		errs = append(errs, fmt.Errorf("profile.mode %q is not cpu or mem", c.Profile.Mode))
	}
	return errors.Join(errs...)
}

func Defaults() *Config {
	return &Config{
		ECS: ECSConfig{
			MaxEntities: 4096,
		},
		Loop: LoopConfig{
			TickRate:  16 * time.Millisecond,
			MaxFrames: 0,
		},
		Scene: SceneConfig{
			Path: "data/scene.yaml",
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profile: ProfileConfig{
			Dir: ".",
		},
	}
}
