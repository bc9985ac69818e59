// Package protocol defines the crosspane wire contract.
//
// Every message exchanged between a host and an embedded guest is a single
// Envelope carrying the protocol marker, a message kind, and the pairing
// identifiers. The package also owns Sanitize, the one authentication gate
// every inbound listener must pass a message through before interpreting it:
// the reception channel is shared and broadcast-like, so anything that does
// not carry the marker, report the expected origin, and use a recognized
// kind is dropped without comment.
package protocol
