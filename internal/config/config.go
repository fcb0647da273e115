package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "wschat"
	configFile = "config.yaml"

	// CurrentVersion is the only file format version understood by Load
	CurrentVersion = 1

	DefaultPort            = 8080
	DefaultLogLevel        = "info"
	DefaultURL             = "ws://localhost:8080/"
	DefaultDiscoverTimeout = 5
)

// Mutex for file writes from the same process
var fileMutex sync.Mutex

// Config is the contents of config.yaml
type Config struct {
	Version int           `yaml:"version"`
	Server  *ServerConfig `yaml:"server"`
	Client  *ClientConfig `yaml:"client"`
}

// ServerConfig holds the wschat-server settings
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LogLevel   string `yaml:"log_level"`
	CaptureDir string `yaml:"capture_dir,omitempty"`
	AdminAddr  string `yaml:"admin_addr,omitempty"`
	Advertise  bool   `yaml:"advertise"`
	Instance   string `yaml:"instance,omitempty"`
}

// ClientConfig holds the wschat-client settings
type ClientConfig struct {
	URL             string `yaml:"url"`
	Name            string `yaml:"name,omitempty"`
	DiscoverTimeout int    `yaml:"discover_timeout"` // seconds
}

// Default returns a configuration with every field at its default value
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: &ServerConfig{
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
		},
		Client: &ClientConfig{
			URL:             DefaultURL,
			DiscoverTimeout: DefaultDiscoverTimeout,
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/wschat or $HOME/.config/wschat
//   - macOS: $HOME/.config/wschat
//   - Windows: %LOCALAPPDATA%\wschat
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path. An empty path means GetConfigPath.
// A missing file is not an error: the defaults are returned. Sections and
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	// An explicit empty section ("server:") decodes to nil
	defaults := Default()
	if cfg.Server == nil {
		cfg.Server = defaults.Server
	}
	if cfg.Client == nil {
		cfg.Client = defaults.Client
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and formats
func (c *Config) Validate() error {
	if c.Server != nil {
		if c.Server.Port < 0 || c.Server.Port > 65535 {
			return fmt.Errorf("server.port %d out of range", c.Server.Port)
		}
		switch c.Server.LogLevel {
		case "", "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("server.log_level %q is not one of debug, info, warn, error", c.Server.LogLevel)
		}
		if c.Server.AdminAddr != "" {
			if _, _, err := net.SplitHostPort(c.Server.AdminAddr); err != nil {
				return fmt.Errorf("server.admin_addr: %w", err)
			}
		}
	}

	if c.Client != nil {
		if c.Client.URL != "" {
			u, err := url.Parse(c.Client.URL)
			if err != nil {
				return fmt.Errorf("client.url: %w", err)
			}
			if u.Scheme != "ws" {
				return fmt.Errorf("client.url scheme must be ws, got %q", u.Scheme)
			}
		}
		if c.Client.DiscoverTimeout < 0 {
			return fmt.Errorf("client.discover_timeout must not be negative")
		}
	}
	return nil
}

// Save writes the configuration to path, creating the directory when needed.
// An empty path means GetConfigPath. The write goes through a temporary file
// and a rename so a crash never leaves a truncated file.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wschat configuration file
# Command line flags take precedence over the values below.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
