package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/client"
	"github.com/muurk/wschat/internal/config"
	"github.com/muurk/wschat/internal/discovery"
	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/ui"
)

// Chat flags
var (
	serverURL string
	name      string
	discover  bool
)

func init() {
	rootCmd.Flags().StringVar(&serverURL, "url", config.DefaultURL, "Server URL")
	rootCmd.Flags().StringVar(&name, "name", "", "Name shown with your messages (default: Anonymous)")
	rootCmd.Flags().BoolVar(&discover, "discover", false, "Find a server over mDNS instead of using --url")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cc := cfg.Client

	flags := cmd.Flags()
	if flags.Changed("url") {
		cc.URL = serverURL
	}
	if flags.Changed("name") {
		cc.Name = name
	}
	if flags.Changed("timeout") {
		cc.DiscoverTimeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := isInteractive()

	url := cc.URL
	if discover {
		label := fmt.Sprintf("Looking for a wschat server (timeout: %ds)...", cc.DiscoverTimeout)
		var endpoint *discovery.Endpoint
		if interactive {
			endpoint, err = ui.Wait(ctx, label, func(ctx context.Context) (*discovery.Endpoint, error) {
				return findServer(ctx, cc.DiscoverTimeout)
			})
		} else {
			fmt.Println(label)
			endpoint, err = findServer(ctx, cc.DiscoverTimeout)
		}
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		url = endpoint.URL()
	}

	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
		Title:   "wschat",
		Command: cmd.CommandPath(),
		Params: []ui.Param{
			{Key: "Server", Value: url},
			{Key: "Name", Value: displayName(cc.Name)},
		},
	}))

	c, err := client.Dial(ctx, url, cc.Name)
	if err != nil {
		return err
	}
	defer c.Close()

	if interactive {
		return runChatScreen(ctx, c, url, displayName(cc.Name))
	}

	printer := ui.NewPrinter(os.Stdout, displayName(cc.Name))
	printer.Status("connected to %s", url)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.Listen(ctx, func(m client.Message) {
			printer.Message(m.Content)
		})
	}()

	lines := make(chan string)
	go readLines(lines)

	for {
		select {
		case <-ctx.Done():
			printer.Status("leaving")
			return nil

		case err := <-listenErr:
			if err != nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			printer.Status("server closed the connection")
			return nil

		case line, ok := <-lines:
			if !ok {
				printer.Status("leaving")
				return nil
			}
			if err := c.Send(line); err != nil {
				if errors.Is(err, client.ErrEmptyMessage) {
					continue
				}
				if errors.Is(err, client.ErrMessageTooLong) {
					printer.Error(err)
					continue
				}
				return err
			}
		}
	}
}

// runChatScreen runs the full-screen chat until the user quits or the
// connection ends
func runChatScreen(ctx context.Context, c *client.Client, url, self string) error {
	send := func(line string) error {
		if err := c.Send(line); err != nil && !errors.Is(err, client.ErrEmptyMessage) {
			return err
		}
		return nil
	}

	p := tea.NewProgram(ui.NewChatModel(url, self, send),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		p.Send(ui.StatusMsg("connected to " + url))
		err := c.Listen(ctx, func(m client.Message) {
			p.Send(ui.ReceivedMsg(m.Content))
		})
		p.Send(ui.ClosedMsg{Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("chat screen: %w", err)
	}

	m := final.(ui.ChatModel)
	if !m.Closed() {
		return nil
	}
	if m.Err() != nil {
		return fmt.Errorf("connection lost: %w", m.Err())
	}
	fmt.Println("server closed the connection")
	return nil
}

// isInteractive reports whether both stdin and stdout are terminals. Piped
// input or output falls back to the line-oriented client.
func isInteractive() bool {
	return ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)
}

// readLines sends stdin lines to out and closes it at end of input
func readLines(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		logging.Warn("Failed to read input", zap.Error(err))
	}
}

func displayName(n string) string {
	if n == "" {
		return "Anonymous"
	}
	return n
}

func findServer(ctx context.Context, seconds int) (*discovery.Endpoint, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(seconds) * time.Second

	endpoint, err := scanner.First(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (use --url to connect directly)", err)
	}
	return endpoint, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List wschat servers on the local network",
	Long: `List wschat servers announcing themselves over mDNS/DNS-SD.

Servers announce themselves when started with 'wschat-server server --advertise'.`,
	Example: `  # Scan for 5 seconds (default)
  wschat-client scan

  # Longer scan
  wschat-client scan --timeout 15`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	label := fmt.Sprintf("Scanning for wschat servers (timeout: %ds)...", timeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(timeout) * time.Second

	var endpoints []*discovery.Endpoint
	var err error
	if isInteractive() {
		endpoints, err = ui.Wait(cmd.Context(), label, scanner.Scan)
	} else {
		fmt.Printf("%s\n\n", label)
		endpoints, err = scanner.Scan(cmd.Context())
	}
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Println("No servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start the server with --advertise")
		fmt.Println("  - Check that multicast traffic is allowed on this network")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(endpoints))
	for i, e := range endpoints {
		fmt.Printf("%d. %s\n", i+1, e.Instance)
		fmt.Printf("   URL:     %s\n", e.URL())
		if v := e.GetMetadata("version"); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}

	fmt.Println("Use 'wschat-client --url <url>' to connect")
	return nil
}
