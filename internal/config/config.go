package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides DefaultPath.
const (
	EnvPath     = "CASUAL_CONFIG"
	DefaultPath = "config/engine.toml"
)

type Config struct {
	Engine   EngineConfig      `toml:"engine"`
	Script   ScriptConfig      `toml:"script"`
	Audio    AudioConfig       `toml:"audio"`
	Database DatabaseConfig    `toml:"database"`
	Logging  LoggingConfig     `toml:"logging"`
	CVars    map[string]string `toml:"cvars"`
	Input    InputConfig       `toml:"input"`
}

type EngineConfig struct {
	Title       string `toml:"title"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	Fullscreen  bool   `toml:"fullscreen"`
	TPS         int    `toml:"tps"`          // logic ticks per second
	PackageRoot string `toml:"package_root"` // directory holding game packages
	CommonRoot  string `toml:"common_root"`  // shared scripts and assets
	Package     string `toml:"package"`      // package started at boot
	Language    string `toml:"language"`     // BCP 47 tag, e.g. "en" or "de-AT"
}

type ScriptConfig struct {
	MaxCallDepth      int           `toml:"max_call_depth"`
	CallTimeout       time.Duration `toml:"call_timeout"` // 0 disables the watchdog
	PrecompileWorkers int           `toml:"precompile_workers"`
}

type AudioConfig struct {
	Enabled    bool `toml:"enabled"`
	SampleRate int  `toml:"sample_rate"`
	Volume     int  `toml:"volume"` // master volume 0-10
}

// DatabaseConfig selects the property store. An empty DSN keeps properties
// in files under the package's props directory.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type InputConfig struct {
	Bindings map[string]string `toml:"bindings"` // command name -> key name
}

// Path returns the config path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.Width <= 0 || c.Engine.Height <= 0 {
		return fmt.Errorf("engine resolution %dx%d is invalid", c.Engine.Width, c.Engine.Height)
	}
	if c.Engine.TPS <= 0 {
		return fmt.Errorf("engine tps must be positive")
	}
	if c.Script.MaxCallDepth <= 0 {
		return fmt.Errorf("script max_call_depth must be positive")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 10 {
		return fmt.Errorf("audio volume %d out of range 0-10", c.Audio.Volume)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Title:       "Casual Game Engine",
			Width:       1024,
			Height:      768,
			TPS:         60,
			PackageRoot: "packages",
			CommonRoot:  "packages/.common",
			Package:     "demo",
			Language:    "en",
		},
		Script: ScriptConfig{
			MaxCallDepth:      64,
			PrecompileWorkers: 4,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			Volume:     10,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		CVars: map[string]string{},
		Input: InputConfig{
			Bindings: map[string]string{
				"MOVE_FORWARD":  "W",
				"MOVE_BACKWARD": "S",
				"MOVE_LEFT":     "A",
				"MOVE_RIGHT":    "D",
				"ATTACK":        "Space",
			},
		},
	}
}
