package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if filepath.Base(configDir) != "wschat" {
		t.Errorf("GetConfigDir() = %v, should end in 'wschat'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	default:
		if configDir != filepath.Join("/tmp/xdg", "wschat") {
			t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME based path", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != CurrentVersion {
		t.Errorf("Default().Version = %v, want %v", cfg.Version, CurrentVersion)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Default().Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "" {
		t.Errorf("Default().Server.Host = %q, want all interfaces", cfg.Server.Host)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("Default().Server.LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Client.URL != "ws://localhost:8080/" {
		t.Errorf("Default().Client.URL = %q", cfg.Client.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Load() Server.Port = %v, want %v", cfg.Server.Port, DefaultPort)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial server section keeps defaults",
			content: `version: 1
server:
  port: 9000
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9000 {
					t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
				}
				if cfg.Server.LogLevel != "info" {
					t.Errorf("Server.LogLevel = %q, want info", cfg.Server.LogLevel)
				}
				if cfg.Client.URL != DefaultURL {
					t.Errorf("Client.URL = %q, want default", cfg.Client.URL)
				}
			},
		},
		{
			name: "empty sections",
			content: `version: 1
server:
client:
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server == nil || cfg.Client == nil {
					t.Fatal("sections should be filled with defaults")
				}
				if cfg.Server.Port != DefaultPort {
					t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, DefaultPort)
				}
			},
		},
		{
			name: "client section",
			content: `version: 1
client:
  url: ws://chat.local:8081/
  name: alice
  discover_timeout: 3
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Client.URL != "ws://chat.local:8081/" || cfg.Client.Name != "alice" || cfg.Client.DiscoverTimeout != 3 {
					t.Errorf("Client = %+v", cfg.Client)
				}
			},
		},
		{
			name:    "unsupported version",
			content: "version: 2\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "invalid yaml",
			content: "version: [1\n",
			wantErr: "failed to parse",
		},
		{
			name: "bad log level",
			content: `version: 1
server:
  log_level: loud
`,
			wantErr: "log_level",
		},
		{
			name: "bad url scheme",
			content: `version: 1
client:
  url: http://localhost:8080/
`,
			wantErr: "scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port zero picks a free port", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"admin addr without port", func(c *Config) { c.Server.AdminAddr = "localhost" }, true},
		{"admin addr", func(c *Config) { c.Server.AdminAddr = "127.0.0.1:9090" }, false},
		{"negative discover timeout", func(c *Config) { c.Client.DiscoverTimeout = -1 }, true},
		{"nil sections", func(c *Config) { c.Server, c.Client = nil, nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 9001
	cfg.Server.AdminAddr = "127.0.0.1:9090"
	cfg.Server.Advertise = true
	cfg.Client.Name = "bob"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save()")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# wschat configuration file") {
		t.Error("saved file should start with the header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 9001 || loaded.Server.AdminAddr != "127.0.0.1:9090" || !loaded.Server.Advertise {
		t.Errorf("loaded Server = %+v", loaded.Server)
	}
	if loaded.Client.Name != "bob" {
		t.Errorf("loaded Client.Name = %q, want bob", loaded.Client.Name)
	}
}
