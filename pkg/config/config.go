// Package config handles loading and saving archtrace configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/archtrace/config.yaml
//   - State:   ~/.local/state/archtrace/ (stored API key)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// DataConfig selects the architecture document.
type DataConfig struct {
	Path  string `yaml:"path,omitempty"`  // YAML/JSON file; empty uses the embedded airport data
	Watch *bool  `yaml:"watch,omitempty"` // Live reload when Path changes (default true)
}

// AssistantConfig configures the remote assistant.
type AssistantConfig struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"` // e.g. "60s"; 0 disables the client timeout
	// ArchitectureContext appends the system list to the system instruction.
	ArchitectureContext bool `yaml:"architecture_context,omitempty"`
	BatchConcurrency    int  `yaml:"batch_concurrency,omitempty"`
}

// TraceConfig overrides the connector offsets.
type TraceConfig struct {
	EndOffset   float64 `yaml:"end_offset,omitempty"`
	CurveOffset float64 `yaml:"curve_offset,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Theme            string `yaml:"theme,omitempty"`             // auto, dark, light
	InitialMilestone string `yaml:"initial_milestone,omitempty"` // "1.0".."4.0"
	ShowConnectors   *bool  `yaml:"show_connectors,omitempty"`   // Connector panel visible at start (default true)
	ChatWidth        int    `yaml:"chat_width,omitempty"`        // Chat panel width in cells
}

// Config is the top-level configuration for archtrace.
type Config struct {
	Data      DataConfig      `yaml:"data,omitempty"`
	Assistant AssistantConfig `yaml:"assistant,omitempty"`
	Trace     TraceConfig     `yaml:"trace,omitempty"`
	UI        UIConfig        `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Assistant: AssistantConfig{
			Endpoint:         "https://generativelanguage.googleapis.com/v1beta",
			Model:            "gemini-2.0-flash-exp",
			Timeout:          60 * time.Second,
			BatchConcurrency: 3,
		},
		Trace: TraceConfig{
			EndOffset:   trace.DefaultEndOffset,
			CurveOffset: trace.DefaultCurveOffset,
		},
		UI: UIConfig{
			Theme:     "auto",
			ChatWidth: 48,
		},
	}
}

// ConfigDir returns the XDG config directory for archtrace.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "archtrace")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "archtrace")
}

// StateDir returns the XDG state directory for archtrace.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "archtrace")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "archtrace")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	return cfg, nil
}

// Validate rejects values the viewer cannot use.
func (c Config) Validate() error {
	if c.Trace.EndOffset < 0 || c.Trace.CurveOffset < 0 {
		return fmt.Errorf("invalid trace offsets: end %v, curve %v (must be >= 0)", c.Trace.EndOffset, c.Trace.CurveOffset)
	}
	if c.Assistant.Timeout < 0 {
		return fmt.Errorf("invalid assistant timeout %v", c.Assistant.Timeout)
	}
	switch strings.ToLower(c.UI.Theme) {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("invalid ui theme %q (want auto, dark or light)", c.UI.Theme)
	}
	if c.UI.InitialMilestone != "" {
		if _, err := model.ParseMilestone(c.UI.InitialMilestone); err != nil {
			return fmt.Errorf("ui.initial_milestone: %w", err)
		}
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// TraceOptions returns the engine offsets.
func (c Config) TraceOptions() trace.Options {
	return trace.Options{EndOffset: c.Trace.EndOffset, CurveOffset: c.Trace.CurveOffset}
}

// WatchEnabled reports whether the data file should be watched.
func (c Config) WatchEnabled() bool {
	return c.Data.Watch == nil || *c.Data.Watch
}

// ConnectorsVisible reports whether the connector panel starts open.
func (c Config) ConnectorsVisible() bool {
	return c.UI.ShowConnectors == nil || *c.UI.ShowConnectors
}

// Milestone returns the configured initial milestone, or MilestoneNone.
func (c Config) Milestone() model.Milestone {
	m, err := model.ParseMilestone(c.UI.InitialMilestone)
	if err != nil {
		return model.MilestoneNone
	}
	return m
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
