package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/protocol"
	"go.uber.org/zap"
)

// Sender delivers encoded frames to one connected peer
type Sender interface {
	Send(frame []byte) error
}

// Client is a connection that completed the handshake
type Client struct {
	ID          uint64
	Session     Sender
	RemoteAddr  string
	ConnectedAt time.Time
}

// String returns a short description for logs
func (c *Client) String() string {
	return fmt.Sprintf("client %d (%s)", c.ID, c.RemoteAddr)
}

// Info is a read-only view of a client
type Info struct {
	ID          uint64    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Report summarizes one broadcast
type Report struct {
	Recipients int      // members at the time of the broadcast
	Delivered  int      // successful sends
	Failed     []uint64 // ids whose send failed
}

// Observer is notified about registry activity. All methods may be called
// concurrently.
type Observer interface {
	ClientAdded(c *Client)
	ClientRemoved(c *Client)
	Broadcasted(r Report)
	EncodeFailed(message string, err error)
}

// Registry is the set of connected clients
type Registry struct {
	mu       sync.Mutex
	nextID   uint64
	clients  []*Client
	observer Observer

	// broadcastMu serializes broadcasts
	broadcastMu sync.Mutex
}

// Option configures a Registry
type Option func(*Registry)

// WithObserver sets the observer notified of registry activity
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a session and returns its client record. It always succeeds.
func (r *Registry) Add(session Sender, remoteAddr string) *Client {
	r.mu.Lock()
	r.nextID++
	client := &Client{
		ID:          r.nextID,
		Session:     session,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
	r.clients = append(r.clients, client)
	total := len(r.clients)
	r.mu.Unlock()

	logging.Info("Client connected",
		zap.Uint64("client_id", client.ID),
		zap.String("remote_addr", remoteAddr),
		zap.Int("clients", total),
	)
	if r.observer != nil {
		r.observer.ClientAdded(client)
	}
	return client
}

// Remove unregisters the client owning session. Removing an unknown session is
// a no-op and returns false.
func (r *Registry) Remove(session Sender) bool {
	r.mu.Lock()
	var removed *Client
	for i, c := range r.clients {
		if c.Session == session {
			removed = c
			r.clients = append(r.clients[:i:i], r.clients[i+1:]...)
			break
		}
	}
	total := len(r.clients)
	r.mu.Unlock()

	if removed == nil {
		return false
	}

	logging.Info("Client removed",
		zap.Uint64("client_id", removed.ID),
		zap.String("remote_addr", removed.RemoteAddr),
		zap.Int("clients", total),
	)
	if r.observer != nil {
		r.observer.ClientRemoved(removed)
	}
	return true
}

// Lookup finds the client owning session
func (r *Registry) Lookup(session Sender) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.Session == session {
			return c, true
		}
	}
	return nil, false
}

// Len returns the number of registered clients
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// List returns the registered clients in insertion order
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, Info{ID: c.ID, RemoteAddr: c.RemoteAddr, ConnectedAt: c.ConnectedAt})
	}
	return out
}

// Clear drops every client and returns them, for server shutdown
func (r *Registry) Clear() []*Client {
	r.mu.Lock()
	dropped := r.clients
	r.clients = nil
	r.mu.Unlock()

	if r.observer != nil {
		for _, c := range dropped {
			r.observer.ClientRemoved(c)
		}
	}
	return dropped
}

func (r *Registry) snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Client(nil), r.clients...)
}

// Broadcast sends message as a text frame to every registered client,
// including the one that sent it.
//
// The message is encoded once. If it does not fit in a frame nothing is sent
// and the encoding error is returned. A failed send to one client is logged
// and recorded in the report; the remaining clients still receive the message.
// Sends carry no deadline, so a client that stops reading blocks this and
// every later broadcast until it reads or disconnects.
func (r *Registry) Broadcast(message string) (Report, error) {
	frame, err := protocol.EncodeText(message)
	if err != nil {
		logging.Warn("Message not sent",
			zap.String("message", message),
			zap.Int("bytes", len(message)),
			zap.Error(err),
		)
		if r.observer != nil {
			r.observer.EncodeFailed(message, err)
		}
		return Report{}, err
	}

	r.broadcastMu.Lock()
	defer r.broadcastMu.Unlock()

	members := r.snapshot()
	report := Report{Recipients: len(members)}
	for _, c := range members {
		if err := c.Session.Send(frame); err != nil {
			logging.Warn("Failed to deliver message",
				zap.Uint64("client_id", c.ID),
				zap.String("remote_addr", c.RemoteAddr),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, c.ID)
			continue
		}
		report.Delivered++
	}

	logging.Debug("Broadcast complete",
		zap.Int("recipients", report.Recipients),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", len(report.Failed)),
	)
	if r.observer != nil {
		r.observer.Broadcasted(report)
	}
	return report, nil
}
