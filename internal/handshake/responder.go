package handshake

import (
	"context"

	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/protocol"
	"github.com/crosspane/crosspane/internal/remote"
)

// ResponderConfig configures the responding side of a pairing.
type ResponderConfig struct {
	// Model is the local data model served after the handshake. Nil means
	// an empty model.
	Model *remote.Model

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Responder waits for a single well-formed handshake and replies once.
//
// No origin check runs at this stage: the responder does not yet know its
// counterpart. Trust is established by replying only to the exact sender
// and origin that delivered the handshake, and by gating all later traffic
// on that now-fixed origin.
type Responder struct {
	cfg ResponderConfig
	log *logging.Logger
}

// NewResponder creates a responder.
func NewResponder(cfg ResponderConfig) *Responder {
	if cfg.Model == nil {
		cfg.Model = remote.NewModel()
	}
	return &Responder{
		cfg: cfg,
		log: logging.Ensure(cfg.Logger).Named("responder"),
	}
}

type arrival struct {
	child *remote.Child
	err   error
}

// Await registers one inbound listener on ep and blocks until a handshake
// arrives, a non-handshake protocol message arrives first (failure, no
// retry), or ctx is cancelled. Both outcomes are terminal: the listener is
// deregistered before the reply or the failure is surfaced, so at most one
// handshake is ever processed and a failed responder never answers one.
func (r *Responder) Await(ctx context.Context, ep bus.Endpoint) (*remote.Child, error) {
	arrivals := make(chan arrival, 1)

	// registered gates the listener until ep.Listen has returned, so the
	// deregistration handle is safe to use from the dispatch goroutine.
	registered := make(chan struct{})
	var cancel func()
	cancel = ep.Listen(func(msg bus.Message) {
		<-registered
		env := msg.Envelope
		if env == nil || env.TypeTag != protocol.TypeTag {
			return
		}
		if !env.Kind.Recognized() {
			r.cfg.Metrics.RecordDrop(string(protocol.DropUnknownKind))
			return
		}

		if env.Kind != protocol.KindHandshake {
			// Failure is terminal; deregister before surfacing it so a
			// handshake already queued behind the noise is never answered.
			cancel()
			select {
			case arrivals <- arrival{err: protocol.ErrHandshakeRejected}:
			default:
			}
			return
		}

		// First handshake wins; deregister before replying so no second
		// handshake is ever processed.
		cancel()

		r.cfg.Model.Merge(env.Model)
		reply := protocol.NewHandshakeReply(env.InstanceID)
		if err := msg.Source.Post(reply, msg.Origin); err != nil {
			select {
			case arrivals <- arrival{err: err}:
			default:
			}
			return
		}

		r.log.Debug("handshake replied",
			zap.String("parentOrigin", msg.Origin),
			zap.Int64("instance", int64(env.InstanceID)))

		child := remote.NewChild(ep, msg.Origin, env.InstanceID, r.cfg.Model, r.cfg.Logger, r.cfg.Metrics)
		select {
		case arrivals <- arrival{child: child}:
		default:
		}
	})
	close(registered)
	defer cancel()

	select {
	case a := <-arrivals:
		if a.err != nil {
			r.log.Error("handshake failed", zap.Error(a.err))
			return nil, a.err
		}
		return a.child, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
