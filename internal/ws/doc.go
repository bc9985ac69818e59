// Package ws bridges remote panes onto a local message bus over WebSocket.
//
// A remote guest (for example a browser pane) connects to /ws with its
// origin; the bridge attaches an endpoint under that origin and forwards
// traffic both ways:
//   - bus deliveries addressed to the pane's origin are encoded as wire
//     frames and written to the socket
//   - inbound wire frames are posted onto the bus as if the pane were a
//     local endpoint
//
// The bridge never interprets envelopes; sanitization and instance gating
// stay with the protocol layer. Inbound frames above the configured rate
// are dropped, consistent with the drop-don't-fault rule for channel noise.
//
// Example Usage:
//
//	handler := ws.NewHandler(sharedBus, cfg, logger, metrics)
//	router.GET("/ws", handler.HandleConnection)
package ws
