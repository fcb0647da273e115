// Package client is a line-oriented chat client for a wschat server.
//
// Each line is sent as a JSON envelope, {"text":{"content":"[15:04]name: line"}},
// the same document the browser client of the original chat page produced.
// Lines whose envelope would not fit in a single 125-byte frame are refused
// locally, since the server drops them. Received payloads that are envelopes
// are shown by their content; anything else is shown as sent.
package client
