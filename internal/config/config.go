// Package config handles loading the mailextract configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/imap"
)

// IMAPConfig holds IMAP connection settings.
type IMAPConfig struct {
	imap.Settings

	// PasswordEnv names an environment variable holding the password used
	// when a descriptor carries none.
	PasswordEnv string `toml:"password_env"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// OutputConfig holds where extractions are written.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// Config represents the mailextract configuration.
type Config struct {
	Extract extract.Options `toml:"extract"`
	IMAP    IMAPConfig      `toml:"imap"`
	Log     LogConfig       `toml:"log"`
	Output  OutputConfig    `toml:"output"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// NewDefaultConfig returns the configuration used when no file exists.
func NewDefaultConfig() *Config {
	home := DefaultHome()
	return &Config{
		Extract:    extract.DefaultOptions(),
		IMAP:       IMAPConfig{Settings: imap.DefaultSettings()},
		Log:        LogConfig{Level: "info"},
		Output:     OutputConfig{Dir: "."},
		HomeDir:    home,
		ConfigPath: filepath.Join(home, "config.toml"),
	}
}

// DefaultHome returns the default mailextract home directory.
// Respects the MAILEXTRACT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILEXTRACT_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailextract"
	}
	return filepath.Join(home, ".mailextract")
}

// Load reads the configuration from path. An empty path means the default
// location, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	explicit := path != ""
	if explicit {
		cfg.ConfigPath = expandPath(path)
	}

	if _, err := os.Stat(cfg.ConfigPath); errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(cfg.ConfigPath, cfg); err != nil {
		return nil, decodeError(err)
	}

	cfg.Output.Dir = expandPath(cfg.Output.Dir)
	if err := cfg.Extract.Validate(); err != nil {
		return nil, fmt.Errorf("config [extract]: %w", err)
	}
	if _, err := cfg.LogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IMAPSettings returns the IMAP settings with the password resolved from
// the configured environment variable.
func (c *Config) IMAPSettings() imap.Settings {
	s := c.IMAP.Settings
	if c.IMAP.PasswordEnv != "" {
		s.Password = os.Getenv(c.IMAP.PasswordEnv)
	}
	return s
}

// LogLevel parses the [log] level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config [log]: unknown level %q", c.Log.Level)
	}
	return lvl, nil
}

// decodeError adds a hint for the most common TOML mistake: Windows paths
// in double-quoted strings.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w (hint: use forward slashes or single quotes for paths)", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
