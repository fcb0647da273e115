package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// Advertiser announces a running server over mDNS
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance as a ServiceType service on port.
// The TXT record carries the WebSocket path and the server version.
func Advertise(instance string, port int, version string) (*Advertiser, error) {
	text := []string{"path=/", "version=" + version}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
