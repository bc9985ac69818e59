package remote

import (
	"sync"

	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/protocol"
	"github.com/crosspane/crosspane/internal/shared/id"
)

// Child is the responder-side API to an acknowledged pairing. The parent
// origin and instance identifier are fixed at handshake time; every inbound
// message is gated on both.
type Child struct {
	ep           bus.Endpoint
	parentOrigin string
	instance     id.InstanceID
	model        *Model
	log          *logging.Logger
	metrics      *monitoring.Metrics

	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewChild wires the responder-side API after a handshake has been replied
// to, and registers its persistent inbound listener.
func NewChild(ep bus.Endpoint, parentOrigin string, instance id.InstanceID, model *Model, log *logging.Logger, metrics *monitoring.Metrics) *Child {
	c := &Child{
		ep:           ep,
		parentOrigin: parentOrigin,
		instance:     instance,
		model:        model,
		log:          logging.Ensure(log).Named("child"),
		metrics:      metrics,
		done:         make(chan struct{}),
	}
	c.cancel = ep.Listen(c.receive)
	return c
}

func (c *Child) receive(msg bus.Message) {
	ok, reason := protocol.Vet(msg.Origin, msg.Envelope, c.parentOrigin)
	if !ok {
		c.metrics.RecordDrop(string(reason))
		return
	}
	env := msg.Envelope
	if env.InstanceID != c.instance {
		c.metrics.RecordDrop(string(protocol.DropWrongInstance))
		return
	}

	switch env.Kind {
	case protocol.KindCall:
		if !c.model.Invoke(env.Property, env.Data) {
			c.log.Debug("call to unknown procedure", zap.String("property", env.Property))
		}
	case protocol.KindHandshake:
		// Re-handshake after Replied is not supported; the duplicate is
		// dropped rather than answered as a read.
	default:
		// Any other recognized kind is treated as a property read.
		go c.serve(msg)
	}
}

// serve resolves a property and replies to the original sender at its
// reported origin. Resolution may block on deferred values, so it runs off
// the dispatch goroutine.
func (c *Child) serve(msg bus.Message) {
	env := msg.Envelope
	value := c.model.Resolve(env.Property)

	reply := protocol.NewReply(c.instance, env.CorrelationID, env.Property, value)
	if err := msg.Source.Post(reply, msg.Origin); err != nil {
		c.log.Warn("reply failed", zap.String("property", env.Property), zap.Error(err))
	}
}

// Emit sends a named event with data to the fixed parent origin.
func (c *Child) Emit(name string, data any) error {
	select {
	case <-c.done:
		return protocol.ErrDestroyed
	default:
	}
	if err := c.ep.Post(protocol.NewEmit(c.instance, name, data), c.parentOrigin); err != nil {
		return err
	}
	c.metrics.RecordEmit()
	return nil
}

// Model exposes the child's data model for registering further entries.
func (c *Child) Model() *Model { return c.model }

// Close removes the persistent listener. Idempotent.
func (c *Child) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}
