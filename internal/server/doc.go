// Package server implements the relay chat server.
//
// A single Hub goroutine owns the connection table. Transports (TCP and the
// WebSocket gateway) only move bytes: reader goroutines post received chunks to
// the Hub and writer goroutines drain per-connection send queues. All entry
// checks, broadcasts and disconnects happen on the Hub goroutine, so the table
// needs no lock.
package server
