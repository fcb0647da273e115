package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint is a wschat server found on the local network
type Endpoint struct {
	// Instance is the advertised instance name (e.g., "wschat on studio")
	Instance string

	// Hostname is the mDNS hostname (e.g., "studio.local.")
	Hostname string

	// IP is the server address, IPv4 preferred
	IP string

	// Port is the WebSocket port
	Port int

	// Metadata contains the TXT record data ("path=/", "version=...")
	Metadata map[string]string

	// DiscoveredAt is when the endpoint was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description
func (e *Endpoint) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Instance, e.Hostname, net.JoinHostPort(e.IP, strconv.Itoa(e.Port)))
}

// URL returns the WebSocket URL for the endpoint
func (e *Endpoint) URL() string {
	path := e.GetMetadata("path")
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(e.IP, strconv.Itoa(e.Port)), path)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
