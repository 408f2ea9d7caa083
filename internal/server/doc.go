// Package server implements the roomchat relay: a fixed-capacity client
// registry, room broadcasts over it, the per-connection session state machine,
// and the operator console.
//
// The implementation is organized into specialized files for configuration,
// the registry, broadcasting, sessions, transports (TCP lines and WebSocket),
// and the ops HTTP surface to keep the codebase maintainable and testable.
package server
