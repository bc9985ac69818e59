// Package handshake pairs an initiator ("parent") with a responder ("child")
// over a shared, spoofable channel. The transport offers no delivery
// acknowledgment and the counterpart's listener may not exist yet when the
// first announcement is sent, so the initiator re-announces idempotently on
// a timer until the single acknowledgment arrives or the retry budget runs
// out. The responder replies to at most one handshake, ever.
package handshake

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/guest"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/protocol"
	"github.com/crosspane/crosspane/internal/remote"
	"github.com/crosspane/crosspane/internal/shared/id"
)

// Defaults for the announcement retry policy.
const (
	DefaultAttempts = 5
	DefaultInterval = 500 * time.Millisecond
)

// State tracks the initiator's progress through the handshake.
type State int32

const (
	StateIdle State = iota
	StateFrameLoading
	StateAnnouncing
	StateAwaitingAck
	StateAcknowledged
	StateTimedOut
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFrameLoading:
		return "frame-loading"
	case StateAnnouncing:
		return "announcing"
	case StateAwaitingAck:
		return "awaiting-ack"
	case StateAcknowledged:
		return "acknowledged"
	case StateTimedOut:
		return "timed-out"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// InitiatorConfig configures one pairing attempt.
type InitiatorConfig struct {
	// TargetOrigin is the origin announcements are addressed to and the
	// origin acknowledgments are validated against. protocol.OriginAny
	// opts out of origin checking.
	TargetOrigin string

	// Name labels this pairing in logs. Optional.
	Name string

	// Model is the initial data model snapshot merged into the responder's
	// model at handshake time. Initiator keys win on conflict.
	Model map[string]any

	// Attempts is the total announcement budget (default 5).
	Attempts int

	// Interval separates announcements (default 500ms).
	Interval time.Duration

	// Clock drives the retry timer; tests inject a mock. Nil means wall
	// clock.
	Clock clock.Clock

	// IDs issues the pairing's instance identifier and, later, request
	// correlation identifiers. Nil means the process-wide source.
	IDs *id.Source

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Initiator runs the announcing side of the handshake.
type Initiator struct {
	cfg   InitiatorConfig
	log   *logging.Logger
	trace string
	state atomic.Int32
}

// NewInitiator creates an initiator. Zero config fields get defaults.
func NewInitiator(cfg InitiatorConfig) *Initiator {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = id.Default()
	}
	trace := id.NewPairingTrace()
	log := logging.Ensure(cfg.Logger).Named("initiator").With(zap.String("pairing", trace))
	if cfg.Name != "" {
		log = log.With(zap.String("name", cfg.Name))
	}
	return &Initiator{
		cfg:   cfg,
		log:   log,
		trace: trace,
	}
}

// State reports the last state the handshake reached. Safe to read while
// Connect is in flight.
func (i *Initiator) State() State { return State(i.state.Load()) }

func (i *Initiator) setState(s State) { i.state.Store(int32(s)) }

type ack struct {
	origin string
	err    error
}

// Connect waits for g to finish loading, then announces over ep until the
// responder acknowledges, the retry budget is exhausted, or ctx is
// cancelled. On success it returns the parent-side API with the
// counterpart's reported origin fixed as the child origin for all future
// traffic.
func (i *Initiator) Connect(ctx context.Context, ep bus.Endpoint, g guest.Guest) (*remote.Parent, error) {
	i.setState(StateFrameLoading)
	select {
	case <-g.Ready():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	i.setState(StateAnnouncing)
	instance := i.cfg.IDs.NextInstance()
	announce := protocol.NewHandshake(instance, i.cfg.Model)

	acks := make(chan ack, 1)
	cancel := ep.Listen(func(msg bus.Message) {
		ok, reason := protocol.Vet(msg.Origin, msg.Envelope, i.cfg.TargetOrigin)
		if !ok {
			i.cfg.Metrics.RecordDrop(string(reason))
			return
		}
		if msg.Envelope.InstanceID != instance {
			return
		}
		switch msg.Envelope.Kind {
		case protocol.KindHandshakeReply:
			select {
			case acks <- ack{origin: msg.Origin}:
			default:
			}
		default:
			select {
			case acks <- ack{err: protocol.ErrHandshakeRejected}:
			default:
			}
		}
	})
	defer cancel()

	if err := ep.Post(announce, i.cfg.TargetOrigin); err != nil {
		i.setState(StateRejected)
		return nil, err
	}
	attempt := 1
	i.log.Debug("announced", zap.Int64("instance", int64(instance)), zap.Int("attempt", attempt))

	i.setState(StateAwaitingAck)
	ticker := i.cfg.Clock.Ticker(i.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case a := <-acks:
			if a.err != nil {
				i.setState(StateRejected)
				i.cfg.Metrics.RecordHandshake(monitoring.OutcomeRejected)
				i.log.Error("handshake rejected", zap.Error(a.err))
				return nil, a.err
			}
			i.setState(StateAcknowledged)
			i.cfg.Metrics.RecordHandshake(monitoring.OutcomeAcknowledged)
			i.log.Debug("acknowledged", zap.String("childOrigin", a.origin), zap.Int("attempts", attempt))
			return remote.NewParent(ep, g, a.origin, instance, i.cfg.IDs, i.cfg.Logger, i.cfg.Metrics), nil

		case <-ticker.C:
			attempt++
			if attempt > i.cfg.Attempts {
				i.setState(StateTimedOut)
				i.cfg.Metrics.RecordHandshake(monitoring.OutcomeTimedOut)
				i.log.Error("handshake timed out", zap.Int("attempts", i.cfg.Attempts))
				return nil, protocol.ErrHandshakeTimeout
			}
			if err := ep.Post(announce, i.cfg.TargetOrigin); err != nil {
				i.setState(StateRejected)
				return nil, err
			}
			i.log.Debug("re-announced", zap.Int("attempt", attempt))

		case <-ctx.Done():
			i.setState(StateTimedOut)
			return nil, ctx.Err()
		}
	}
}
