// Wschat-server is a minimal chat broadcast server speaking the WebSocket
// wire format over plain TCP.
//
// Every text message a client sends is relayed to all connected clients,
// the sender included.
//
// Usage:
//
//	wschat-server server [flags]
//	wschat-server config init
//
// See 'wschat-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wschat/internal/config"
	"github.com/muurk/wschat/internal/server"
	"github.com/muurk/wschat/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wschat-server",
	Short: "wschat broadcast server",
	Long: `A minimal chat server using the WebSocket wire format over plain TCP.

Clients upgrade with an HTTP handshake, then every text message a client
sends is broadcast to all connected clients, the sender included.`,
	Version: version.Version,
}

// configPath is shared by every subcommand
var configPath string

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: OS config directory)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Server command flags
var (
	host       string
	port       int
	logLevel   string
	captureDir string
	adminAddr  string
	advertise  bool
	instance   string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the chat server",
	Long: `Start the wschat server and accept clients until interrupted.

Settings are read from the config file; flags given on the command line take
precedence. On SIGINT or SIGTERM every client is dropped and the server exits.

To record every inbound frame for protocol analysis, use --capture-dir.
To expose health, client list and Prometheus metrics over HTTP, use --admin-addr.`,
	Example: `  # Listen on all interfaces, port 8080
  wschat-server server

  # Custom port with debug logging
  wschat-server server --port 9000 --log-level debug

  # Capture frames and expose metrics
  wschat-server server --capture-dir ./captures --admin-addr 127.0.0.1:9090

  # Announce the server on the local network
  wschat-server server --advertise --instance "Office chat"`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serverCmd.Flags().IntVar(&port, "port", config.DefaultPort, "Listen port")
	serverCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	serverCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Directory for frame capture files (disabled if not specified)")
	serverCmd.Flags().StringVar(&adminAddr, "admin-addr", "", "Address for /healthz, /clients and /metrics (disabled if not specified)")
	serverCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the server over mDNS")
	serverCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default: \"wschat on <hostname>\")")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	sc := cfg.Server

	flags := cmd.Flags()
	if flags.Changed("host") {
		sc.Host = host
	}
	if flags.Changed("port") {
		sc.Port = port
	}
	if flags.Changed("log-level") {
		sc.LogLevel = logLevel
	}
	if flags.Changed("capture-dir") {
		sc.CaptureDir = captureDir
	}
	if flags.Changed("admin-addr") {
		sc.AdminAddr = adminAddr
	}
	if flags.Changed("advertise") {
		sc.Advertise = advertise
	}
	if flags.Changed("instance") {
		sc.Instance = instance
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Host:       sc.Host,
		Port:       sc.Port,
		LogLevel:   sc.LogLevel,
		CaptureDir: sc.CaptureDir,
		AdminAddr:  sc.AdminAddr,
		Advertise:  sc.Advertise,
		Instance:   sc.Instance,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wschat-server %s\n", version.Full())
	},
}
