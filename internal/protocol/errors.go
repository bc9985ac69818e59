package protocol

import "errors"

var (
	// ErrHandshakeTimeout is surfaced when the retry budget is exhausted
	// without an acknowledgment.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrHandshakeRejected is surfaced when an unexpected message kind
	// arrives where a handshake or its acknowledgment was expected.
	ErrHandshakeRejected = errors.New("handshake rejected")

	// ErrDestroyed is returned by API calls made after Destroy.
	ErrDestroyed = errors.New("pairing destroyed")
)
