package bus

import (
	"sync"

	"github.com/crosspane/crosspane/internal/protocol"
)

const memoryQueueDepth = 256

// MemoryBus is an in-process shared channel. All attached endpoints share
// one broadcast domain: a post reaches every other endpoint whose origin
// matches the target origin, including endpoints of unrelated pairings.
type MemoryBus struct {
	mu        sync.RWMutex
	endpoints []*MemoryEndpoint
	closed    bool
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Attach adds an endpoint addressable under origin and starts its dispatch
// loop. Multiple endpoints may share an origin. Attaching to a closed bus
// yields an endpoint that is already closed.
func (b *MemoryBus) Attach(origin string) *MemoryEndpoint {
	ep := &MemoryEndpoint{
		bus:    b,
		origin: origin,
		queue:  make(chan Message, memoryQueueDepth),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ep.shutdown()
		return ep
	}
	b.endpoints = append(b.endpoints, ep)
	b.mu.Unlock()

	go ep.dispatch()
	return ep
}

// Endpoints reports how many endpoints are currently attached.
func (b *MemoryBus) Endpoints() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.endpoints)
}

// Close detaches and closes every endpoint.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	eps := b.endpoints
	b.endpoints = nil
	b.closed = true
	b.mu.Unlock()

	for _, ep := range eps {
		ep.shutdown()
	}
}

func (b *MemoryBus) detach(ep *MemoryEndpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.endpoints {
		if e == ep {
			b.endpoints = append(b.endpoints[:i], b.endpoints[i+1:]...)
			return
		}
	}
}

func (b *MemoryBus) route(from *MemoryEndpoint, env *protocol.Envelope, targetOrigin string) {
	b.mu.RLock()
	targets := make([]*MemoryEndpoint, 0, len(b.endpoints))
	for _, ep := range b.endpoints {
		if ep == from {
			continue
		}
		if targetOrigin == protocol.OriginAny || ep.origin == targetOrigin {
			targets = append(targets, ep)
		}
	}
	b.mu.RUnlock()

	for _, ep := range targets {
		ep.enqueue(Message{
			Origin:   from.origin,
			Source:   &replyRef{to: from, local: ep},
			Envelope: env,
		})
	}
}

// replyRef addresses the endpoint a delivery came from. Posting through it
// bypasses the broadcast domain and delivers straight to that endpoint,
// tagged with the replier's origin. The post is silently discarded when
// targetOrigin does not match the source endpoint's origin.
type replyRef struct {
	to    *MemoryEndpoint
	local *MemoryEndpoint
}

func (r *replyRef) Post(env *protocol.Envelope, targetOrigin string) error {
	r.local.mu.Lock()
	closed := r.local.closed
	r.local.mu.Unlock()
	if closed {
		return ErrEndpointClosed
	}
	if targetOrigin != protocol.OriginAny && targetOrigin != r.to.origin {
		return nil
	}
	r.to.enqueue(Message{
		Origin:   r.local.origin,
		Source:   &replyRef{to: r.local, local: r.to},
		Envelope: env,
	})
	return nil
}

// MemoryEndpoint is one attachment on a MemoryBus.
type MemoryEndpoint struct {
	bus    *MemoryBus
	origin string
	queue  chan Message
	done   chan struct{}

	mu        sync.Mutex
	listeners []registration
	nextID    int
	closed    bool
}

type registration struct {
	id int
	fn Listener
}

// Origin returns the origin this endpoint is addressable under.
func (ep *MemoryEndpoint) Origin() string { return ep.origin }

// Post delivers env to every other endpoint matching targetOrigin.
func (ep *MemoryEndpoint) Post(env *protocol.Envelope, targetOrigin string) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()
	if closed {
		return ErrEndpointClosed
	}
	ep.bus.route(ep, env, targetOrigin)
	return nil
}

// Listen subscribes fn and returns its unsubscribe function.
func (ep *MemoryEndpoint) Listen(fn Listener) (cancel func()) {
	ep.mu.Lock()
	id := ep.nextID
	ep.nextID++
	ep.listeners = append(ep.listeners, registration{id: id, fn: fn})
	ep.mu.Unlock()

	return func() {
		ep.mu.Lock()
		defer ep.mu.Unlock()
		for i, reg := range ep.listeners {
			if reg.id == id {
				ep.listeners = append(ep.listeners[:i], ep.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the endpoint from the bus and stops dispatch. Messages not
// yet dispatched are dropped.
func (ep *MemoryEndpoint) Close() {
	ep.bus.detach(ep)
	ep.shutdown()
}

func (ep *MemoryEndpoint) shutdown() {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return
	}
	ep.closed = true
	ep.mu.Unlock()
	close(ep.done)
}

func (ep *MemoryEndpoint) enqueue(msg Message) {
	select {
	case <-ep.done:
	case ep.queue <- msg:
	}
}

func (ep *MemoryEndpoint) dispatch() {
	for {
		select {
		case <-ep.done:
			return
		case msg := <-ep.queue:
			ep.mu.Lock()
			regs := make([]registration, len(ep.listeners))
			copy(regs, ep.listeners)
			ep.mu.Unlock()

			for _, reg := range regs {
				reg.fn(msg)
			}
		}
	}
}
