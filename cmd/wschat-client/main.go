// Wschat-client is a terminal chat client for wschat-server.
//
// On a terminal it opens a chat screen with a message pane and an input box.
// When standard input or output is redirected it reads lines from standard
// input, sends each one to the server and prints every message the server
// broadcasts.
//
// Usage:
//
//	wschat-client [--url ws://host:port/] [--name alice]
//	wschat-client --discover
//	wschat-client scan
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wschat/internal/config"
	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	timeout    int
)

var rootCmd = &cobra.Command{
	Use:   "wschat-client",
	Short: "wschat terminal client",
	Long: `A terminal chat client for wschat-server.

Each line typed is sent as "[HH:MM]name: line". Messages from every client,
including your own, are shown as the server broadcasts them. On a terminal
the client opens a chat screen; press Esc or Ctrl-C to leave. With piped input
it reads one message per line until end of input.`,
	Example: `  # Connect to a local server
  wschat-client --name alice

  # Connect to a specific server
  wschat-client --url ws://192.168.1.20:8080/ --name bob

  # Find a server on the local network
  wschat-client --discover --timeout 3`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: runChat,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: OS config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; silent if unset)")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", config.DefaultDiscoverTimeout, "mDNS discovery timeout in seconds")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wschat-client %s\n", version.Full())
	},
}
