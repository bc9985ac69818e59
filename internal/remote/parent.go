package remote

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/protocol"
	"github.com/crosspane/crosspane/internal/shared/id"
)

// Detacher removes an embedded guest context from its container. The guest
// layer supplies it; Destroy calls it exactly once.
type Detacher interface {
	Close() error
}

// Parent is the initiator-side API to an acknowledged pairing.
type Parent struct {
	ep          bus.Endpoint
	guest       Detacher
	childOrigin string
	instance    id.InstanceID
	ids         *id.Source
	log         *logging.Logger
	metrics     *monitoring.Metrics

	mu      sync.Mutex
	pending map[id.CorrelationID]chan any
	events  map[string][]func(data any)

	cancel  func()
	done    chan struct{}
	destroy sync.Once
}

// NewParent wires the initiator-side API over an acknowledged pairing and
// registers its persistent inbound listener. childOrigin is the origin
// captured from the handshake acknowledgment; guest may be nil when the
// embedded context is managed elsewhere.
func NewParent(ep bus.Endpoint, guest Detacher, childOrigin string, instance id.InstanceID, ids *id.Source, log *logging.Logger, metrics *monitoring.Metrics) *Parent {
	if ids == nil {
		ids = id.Default()
	}
	p := &Parent{
		ep:          ep,
		guest:       guest,
		childOrigin: childOrigin,
		instance:    instance,
		ids:         ids,
		log:         logging.Ensure(log).Named("parent"),
		metrics:     metrics,
		pending:     make(map[id.CorrelationID]chan any),
		events:      make(map[string][]func(any)),
		done:        make(chan struct{}),
	}
	p.cancel = ep.Listen(p.receive)
	return p
}

func (p *Parent) receive(msg bus.Message) {
	ok, reason := protocol.Vet(msg.Origin, msg.Envelope, p.childOrigin)
	if !ok {
		p.metrics.RecordDrop(string(reason))
		return
	}
	env := msg.Envelope
	if env.InstanceID != p.instance {
		p.metrics.RecordDrop(string(protocol.DropWrongInstance))
		return
	}

	switch env.Kind {
	case protocol.KindReply:
		p.mu.Lock()
		ch, ok := p.pending[env.CorrelationID]
		if ok {
			delete(p.pending, env.CorrelationID)
		}
		p.mu.Unlock()
		if !ok {
			// Late or duplicate reply; the request already settled.
			return
		}
		p.metrics.GetSettled()
		ch <- env.Value
	case protocol.KindEmit:
		if env.Event == nil {
			return
		}
		p.mu.Lock()
		callbacks := make([]func(any), len(p.events[env.Event.Name]))
		copy(callbacks, p.events[env.Event.Name])
		p.mu.Unlock()
		for _, fn := range callbacks {
			fn(env.Event.Data)
		}
	}
}

// Get reads a remote property, blocking until the child replies or ctx is
// cancelled. There is no built-in timeout: an unanswered request stays
// pending until reply, cancellation, or Destroy.
func (p *Parent) Get(ctx context.Context, property string) (any, error) {
	select {
	case <-p.done:
		return nil, protocol.ErrDestroyed
	default:
	}

	correlation := p.ids.NextCorrelation()
	ch := make(chan any, 1)

	p.mu.Lock()
	p.pending[correlation] = ch
	p.mu.Unlock()
	p.metrics.GetStarted()

	if err := p.ep.Post(protocol.NewRequest(p.instance, correlation, property), p.childOrigin); err != nil {
		p.drop(correlation)
		return nil, err
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		p.drop(correlation)
		return nil, ctx.Err()
	case <-p.done:
		return nil, protocol.ErrDestroyed
	}
}

func (p *Parent) drop(correlation id.CorrelationID) {
	p.mu.Lock()
	_, ok := p.pending[correlation]
	if ok {
		delete(p.pending, correlation)
	}
	p.mu.Unlock()
	if ok {
		p.metrics.GetSettled()
	}
}

// Call invokes a remote procedure, fire-and-forget. No reply is expected
// and none is correlated.
func (p *Parent) Call(property string, data any) error {
	select {
	case <-p.done:
		return protocol.ErrDestroyed
	default:
	}
	return p.ep.Post(protocol.NewCall(p.instance, property, data), p.childOrigin)
}

// On registers a callback for a named event. Callbacks for one event run in
// registration order.
func (p *Parent) On(event string, fn func(data any)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[event] = append(p.events[event], fn)
}

// Destroy removes the persistent listener and detaches the embedded guest.
// It is idempotent and terminal: subsequent API calls return ErrDestroyed
// and in-flight Gets are released with it.
func (p *Parent) Destroy() {
	p.destroy.Do(func() {
		close(p.done)
		p.cancel()
		if p.guest != nil {
			if err := p.guest.Close(); err != nil {
				p.log.Warn("guest detach failed", zap.Error(err))
			}
		}

		p.mu.Lock()
		n := len(p.pending)
		p.pending = make(map[id.CorrelationID]chan any)
		p.mu.Unlock()
		for i := 0; i < n; i++ {
			p.metrics.GetSettled()
		}

		p.log.Debug("pairing destroyed", zap.Int64("instance", int64(p.instance)))
	})
}
