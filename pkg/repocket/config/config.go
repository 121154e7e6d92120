// Package config loads the repocket configuration. The configuration is read
// once at startup and threaded explicitly into the store, client and pipeline
// constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    bool              `mapstructure:"console"`
	Components map[string]string `mapstructure:"components"`
}

// DeviceConfig locates the device document store.
type DeviceConfig struct {
	// Root is the directory holding the descriptor and payload files.
	Root string `mapstructure:"root"`
	// FolderName is the visible name of the reading folder.
	FolderName string `mapstructure:"folder_name"`
	// ArchiveFolderName is the visible name of the read-articles sub-folder.
	ArchiveFolderName string `mapstructure:"archive_folder_name"`
}

// QueryConfig shapes the remote reading-list query issued each cycle.
type QueryConfig struct {
	Count int    `mapstructure:"count"`
	Tag   string `mapstructure:"tag"`
}

// Config represents the application configuration.
type Config struct {
	Device DeviceConfig `mapstructure:"device"`

	// Format is the packaging container: epub, pdf or html.
	Format string `mapstructure:"format"`

	// CredentialsPath is the two-line consumer-key/access-token file.
	CredentialsPath string `mapstructure:"credentials_path"`

	// StatePath is the reconciliation snapshot file.
	StatePath string `mapstructure:"state_path"`

	// Workers bounds the per-item synthesis pool.
	Workers int `mapstructure:"workers"`

	// Timeout applies to every outbound network call.
	Timeout time.Duration `mapstructure:"timeout"`

	Query   QueryConfig   `mapstructure:"query"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/repocket/config.yaml
//   - $HOME/.config/repocket/config.yaml
//
// Environment variables are prefixed with REPOCKET_ (e.g. REPOCKET_FORMAT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "repocket"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "repocket"))

	v.SetEnvPrefix("REPOCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Device.Root, &cfg.CredentialsPath, &cfg.StatePath, &cfg.Logging.Path} {
		if expanded, err := ExpandPath(*p); err == nil {
			*p = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("device.root", DefaultDeviceRoot(homeDir))
	v.SetDefault("device.folder_name", DefaultFolderName)
	v.SetDefault("device.archive_folder_name", DefaultArchiveFolderName)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("credentials_path", DefaultCredentialsPath())
	v.SetDefault("state_path", DefaultStatePath())
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("query.count", DefaultQueryCount)
	v.SetDefault("query.tag", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.components", map[string]string{
		"daemon":  "info",
		"store":   "info",
		"article": "info",
		"pocket":  "info",
	})
}

// Validate checks configuration preconditions that would otherwise fail
// halfway through a cycle.
func (c *Config) Validate() error {
	switch c.Format {
	case "epub", "pdf", "html":
	default:
		return fmt.Errorf("invalid format %q: must be epub, pdf or html", c.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Query.Count < 1 {
		return fmt.Errorf("query.count must be at least 1, got %d", c.Query.Count)
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "repocket"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "repocket"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// StateDir returns $XDG_STATE_HOME/repocket/ for the snapshot and log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "repocket")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}
