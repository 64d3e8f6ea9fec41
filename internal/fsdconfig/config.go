// Package fsdconfig loads the CLI's configuration file and resolves
// settings across the flag > env > file > default precedence chain,
// grounded field-for-field on the reference CLI's internal/config
// (DHHome/Load/Save/Get/Set).
package fsdconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the ~/.config/fsd/config.toml file.
type Config struct {
	SDKRoot        string `toml:"sdk_root,omitempty"`
	CompilerBinary string `toml:"compiler_binary,omitempty"`
	LogLevel       string `toml:"log_level,omitempty"`
	LogColor       *bool  `toml:"log_color,omitempty"`
}

var homeOverride string

// SetHome allows the CLI's --config flag to override the config directory.
func SetHome(dir string) {
	homeOverride = dir
}

// Home returns the config directory. Precedence: --config flag / SetHome >
// FSD_HOME env > ~/.config/fsd.
func Home() string {
	if homeOverride != "" {
		return homeOverride
	}
	if v := os.Getenv("FSD_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".fsd")
	}
	return filepath.Join(home, ".config", "fsd")
}

// Path returns the full path to config.toml.
func Path() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads config.toml, returning a zero-value Config if it doesn't
// exist yet.
func Load() (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}
	return cfg, nil
}

// Save writes cfg back to config.toml, creating the config directory if
// needed.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Home(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(Path(), data, 0o644)
}

// ResolveSDKRoot determines the SDK root to use.
// Precedence: flagValue > FSD_SDK_ROOT env > config.toml sdk_root.
func ResolveSDKRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("FSD_SDK_ROOT"); v != "" {
		return v, nil
	}
	cfg, err := Load()
	if err == nil && cfg.SDKRoot != "" {
		return cfg.SDKRoot, nil
	}
	return "", fmt.Errorf("no SDK root configured; use --sdk-root, set FSD_SDK_ROOT, or run `fsd config set sdk_root <path>`")
}

// ResolveLogLevel determines the log level to use.
// Precedence: flagValue > FSD_LOG_LEVEL env > config.toml log_level > "info".
func ResolveLogLevel(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("FSD_LOG_LEVEL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.LogLevel != "" {
		return cfg.LogLevel
	}
	return "info"
}

// validKeys lists the keys usable with Get/Set.
var validKeys = map[string]bool{
	"sdk_root":        true,
	"compiler_binary": true,
	"log_level":       true,
	"log_color":       true,
}

// Get retrieves a single config value by key.
func Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	switch key {
	case "sdk_root":
		return cfg.SDKRoot, nil
	case "compiler_binary":
		return cfg.CompilerBinary, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "log_color":
		if cfg.LogColor == nil {
			return "", nil
		}
		return fmt.Sprintf("%t", *cfg.LogColor), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set sets a single config value by key and persists it.
func Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	switch key {
	case "sdk_root":
		cfg.SDKRoot = value
	case "compiler_binary":
		cfg.CompilerBinary = value
	case "log_level":
		cfg.LogLevel = value
	case "log_color":
		b := value == "true"
		cfg.LogColor = &b
	}
	return Save(cfg)
}
