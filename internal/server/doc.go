// Package server implements the websocket transport and HTTP surface of
// chanrelay.
//
// The implementation is organized into specialized files for configuration,
// origin checks, hub management, clients, metrics, routing, and HTTP
// handlers. Protocol semantics live in the relay package; this package only
// moves frames between sockets and relay sessions.
package server
