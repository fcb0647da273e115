// Package registry tracks the clients that completed the handshake and
// delivers broadcasts to them.
//
// Clients receive increasing ids starting at 1; ids are never reused.
// Membership changes are guarded by a mutex, and broadcasts are serialized
// against each other by a second mutex so that two broadcasts never interleave
// their per-client writes. A broadcast works on a snapshot of the members taken
// when it starts.
//
// # Usage Example
//
//	reg := registry.New()
//	client := reg.Add(session, conn.RemoteAddr().String())
//	defer reg.Remove(session)
//
//	report, err := reg.Broadcast("hello")
//	if err != nil {
//	    // message too long to encode, nothing was sent
//	}
package registry
