// Package discovery advertises and finds wschat servers with multicast DNS.
//
// A server started with advertising enabled registers a "_wschat._tcp"
// service in the "local." domain. Its TXT record carries the WebSocket path
// and the server version:
//
//	path=/
//	version=v1.2.0
//
// Clients browse for the same service type and turn the first answer into a
// ws:// URL.
//
// # Usage Example
//
//	adv, err := discovery.Advertise("wschat on studio", 8080, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
//	ep, err := discovery.NewScanner().First(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(ep.URL()) // ws://192.168.1.20:8080/
//
// # Network Requirements
//
//   - Multicast support on the network interface
//   - Client and server on the same network segment
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
