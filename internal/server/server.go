package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/discovery"
	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/registry"
	"github.com/muurk/wschat/internal/version"
)

// shutdownWait bounds how long Shutdown waits for session goroutines after
// their connections were closed
const shutdownWait = 5 * time.Second

// acceptRetryDelay keeps a failing Accept from spinning
const acceptRetryDelay = 50 * time.Millisecond

// Config holds the server configuration
type Config struct {
	Host       string
	Port       int
	LogLevel   string
	CaptureDir string // Directory for frame capture files (empty = disabled)
	AdminAddr  string // Listen address for /healthz, /clients, /metrics (empty = disabled)
	Advertise  bool   // Announce the server over mDNS
	Instance   string // mDNS instance name (empty = "wschat on <hostname>")
}

// Addr returns the listen address in host:port form
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server accepts TCP connections and runs one Session per connection against
// a shared client registry
type Server struct {
	config   *Config
	listener net.Listener
	registry *registry.Registry
	metrics  *Metrics
	promReg  *prometheus.Registry
	capture  *Capture

	admin      *http.Server
	adminLn    net.Listener
	advertiser *discovery.Advertiser

	wg       sync.WaitGroup
	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	capture, err := OpenCapture(config.CaptureDir)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(promReg)

	return &Server{
		config:   config,
		registry: registry.New(registry.WithObserver(metrics)),
		metrics:  metrics,
		promReg:  promReg,
		capture:  capture,
		sessions: make(map[*Session]struct{}),
	}, nil
}

// Registry returns the shared client registry
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Gatherer returns the Prometheus registry holding the server metrics
func (s *Server) Gatherer() prometheus.Gatherer {
	return s.promReg
}

// Addr returns the bound listen address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// AdminAddr returns the bound admin address, or nil when disabled
func (s *Server) AdminAddr() net.Addr {
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}

// Listen binds the WebSocket listener and, when configured, the admin
// endpoint and the mDNS advertisement
func (s *Server) Listen() error {
	addr := s.config.Addr()
	logging.Info("Starting wschat server",
		zap.String("addr", addr),
		zap.String("log_level", s.config.LogLevel),
		zap.String("version", version.Version),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	logging.Info("Listening for clients",
		zap.String("addr", listener.Addr().String()),
	)

	if s.config.AdminAddr != "" {
		if err := s.startAdmin(); err != nil {
			_ = listener.Close()
			return err
		}
	}

	if s.config.Advertise {
		s.startAdvertising()
	}

	return nil
}

func (s *Server) startAdmin() error {
	ln, err := net.Listen("tcp", s.config.AdminAddr)
	if err != nil {
		return fmt.Errorf("failed to create admin listener: %w", err)
	}
	s.adminLn = ln
	s.admin = &http.Server{
		Handler:           NewAdminHandler(s.registry, s.promReg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.admin.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Admin endpoint stopped", zap.Error(err))
		}
	}()

	logging.Info("Admin endpoint listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// startAdvertising registers the mDNS service. Failure is not fatal.
func (s *Server) startAdvertising() {
	instance := s.config.Instance
	if instance == "" {
		hostname, _ := os.Hostname()
		instance = "wschat on " + hostname
	}

	port := s.listener.Addr().(*net.TCPAddr).Port
	adv, err := discovery.Advertise(instance, port, version.Version)
	if err != nil {
		logging.Warn("mDNS advertisement disabled", zap.Error(err))
		return
	}
	s.advertiser = adv
	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
}

// Start listens, serves and blocks until an interrupt or a fatal error
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections until the listener is closed. It returns nil
// after Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			time.Sleep(acceptRetryDelay)
			continue
		}

		session := newSession(conn, s.registry, s.metrics, s.capture)
		if !s.track(session) {
			_ = conn.Close()
			return nil
		}

		go func() {
			defer s.wg.Done()
			defer s.untrack(session)
			session.Run()
		}()
	}
}

// track records a new session; it refuses once Shutdown has started
func (s *Server) track(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[session] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(session *Session) {
	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()
}

// Shutdown closes the listener and every connection. In-flight sessions are
// not drained; all clients are dropped from the registry. Calls after the
// first return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	logging.Info("Shutting down server...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.advertiser.Shutdown()

	for _, session := range sessions {
		_ = session.Close()
	}
	dropped := s.registry.Clear()
	logging.Info("Dropped clients", zap.Int("clients", len(dropped)))

	if s.admin != nil {
		if err := s.admin.Shutdown(ctx); err != nil {
			logging.Warn("Admin endpoint shutdown", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, leaving remaining sessions")
	}

	if err := s.capture.Close(); err != nil {
		logging.Warn("Failed to close capture file", zap.Error(err))
	}

	logging.Sync()
	return nil
}

// ActiveConnections returns the number of open connections, including those
// still in the handshake
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
