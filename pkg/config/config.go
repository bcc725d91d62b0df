// Package config loads the elfin CLI configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/engine"
	"github.com/chazu/elfin/pkg/kernel/sdfx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when ELFIN_CONFIG is unset.
const DefaultPath = "elfin.yaml"

// Config holds the CLI settings.
type Config struct {
	// XDB is the compatibility database file.
	XDB string `yaml:"xdb"`
	// State is the bbolt file scenes are saved in.
	State string `yaml:"state"`
	// Scene is the name of the working scene inside State.
	Scene         string   `yaml:"scene"`
	LogLevel      string   `yaml:"log_level"`
	ScriptTimeout string   `yaml:"script_timeout"`
	Palette       []string `yaml:"palette"`
	MeshCells     int      `yaml:"mesh_cells"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		XDB:           "xdb.json",
		State:         "elfin.db",
		Scene:         "default",
		LogLevel:      "info",
		ScriptTimeout: engine.EvalTimeout.String(),
		Palette:       append([]string(nil), assembly.DefaultPalette...),
		MeshCells:     sdfx.DefaultMeshCells,
	}
}

// Path returns ELFIN_CONFIG if set, DefaultPath otherwise.
func Path() string {
	if p := os.Getenv("ELFIN_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("ELFIN_XDB"); p != "" {
		c.XDB = p
	}
	if p := os.Getenv("ELFIN_STATE"); p != "" {
		c.State = p
	}
}

// Validate checks the values that cannot be checked by their consumers
// without side effects.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := time.ParseDuration(c.ScriptTimeout); err != nil {
		return fmt.Errorf("script_timeout: %w", err)
	}
	if _, err := assembly.NewColorWheel(c.Palette...); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	if c.MeshCells <= 0 {
		return fmt.Errorf("mesh_cells must be positive, got %d", c.MeshCells)
	}
	if c.Scene == "" {
		return fmt.Errorf("scene name is empty")
	}
	return nil
}

// GetScriptTimeout returns the script timeout as a duration.
func (c *Config) GetScriptTimeout() time.Duration {
	d, err := time.ParseDuration(c.ScriptTimeout)
	if err != nil || d <= 0 {
		return engine.EvalTimeout
	}
	return d
}

// ColorWheel returns the wheel built from the palette.
func (c *Config) ColorWheel() (*assembly.ColorWheel, error) {
	return assembly.NewColorWheel(c.Palette...)
}

// Logger builds a production zap logger at the configured level, or at
// debug level when verbose is set.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return l, nil
}
