// Package bus defines the message-passing primitive the protocol runs over.
//
// The channel is asynchronous, unordered across senders, origin-tagged, and
// shared: every endpoint attached to a bus sees traffic addressed to its
// origin (or broadcast), regardless of which pairing it belongs to. The
// protocol layer never creates endpoints, it only uses them; isolation
// between pairings is the sanitizer's job, not the bus's.
package bus

import (
	"errors"

	"github.com/crosspane/crosspane/internal/protocol"
)

// ErrEndpointClosed is returned by Post after an endpoint is closed.
var ErrEndpointClosed = errors.New("bus: endpoint closed")

// Message is one inbound delivery: the envelope plus the channel-reported
// sender origin and a handle for replying directly to the sender.
type Message struct {
	Origin   string
	Source   Poster
	Envelope *protocol.Envelope
}

// Poster sends an envelope toward a specific origin. protocol.OriginAny
// broadcasts to every other endpoint on the channel.
type Poster interface {
	Post(env *protocol.Envelope, targetOrigin string) error
}

// Listener receives inbound messages. Listeners run on the endpoint's
// dispatch goroutine; deliveries from one sender arrive in send order.
type Listener func(msg Message)

// Endpoint is one attachment point on the shared channel.
type Endpoint interface {
	Poster

	// Listen subscribes fn to inbound messages and returns its
	// unsubscribe function. Cancel is idempotent.
	Listen(fn Listener) (cancel func())

	// Origin is the origin this endpoint is addressable under.
	Origin() string
}
