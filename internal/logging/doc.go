// Package logging provides structured logging for the wschat server and client.
//
// This package wraps a global zap logger with convenience functions for the
// events the server reports: connection lifecycle, upgrade requests, frames,
// protocol violations and broadcasts.
//
// # Log Levels
//
//   - debug: frame hex dumps, broadcast summaries
//   - info: connections, handshakes, client registration
//   - warn: protocol violations, failed deliveries, dropped messages
//   - error: listener and startup failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the WSCHAT_LOG_LEVEL environment variable. When
// that is also empty the logger is a no-op.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use, also while Initialize
// or SetLogger replace the logger.
package logging
