// Package main is the entry point for the crosspane bridge server.
//
// The server hosts an in-process message bus and exposes it over WebSocket
// so remote panes can join the broadcast domain and pair with local
// applications.
//
// The server provides:
//   - /ws        WebSocket bridge onto the shared bus
//   - /health    Liveness probe
//   - /metrics   Prometheus metrics
//
// Configuration comes from environment variables with development defaults.
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
