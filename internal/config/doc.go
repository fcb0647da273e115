// Package config manages the wschat configuration file.
//
// The file is YAML and holds one section for the server and one for the
// client. Command line flags override the file; the file overrides the
// built-in defaults.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/wschat/config.yaml or $HOME/.config/wschat/config.yaml
//   - macOS: $HOME/.config/wschat/config.yaml
//   - Windows: %LOCALAPPDATA%\wschat\config.yaml
//
// # File Format
//
//	version: 1
//	server:
//	  host: ""
//	  port: 8080
//	  log_level: info
//	  admin_addr: 127.0.0.1:9090
//	  advertise: false
//	client:
//	  url: ws://localhost:8080/
//	  name: alice
//	  discover_timeout: 5
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Server.Port = 9000
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
package config
