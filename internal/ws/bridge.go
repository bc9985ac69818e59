package ws

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/protocol"
)

// Drop reasons local to the bridge; sanitizer reasons live in protocol.
const (
	dropRateLimited = "rate_limited"
	dropMalformed   = "malformed_frame"
)

// wireFrame is the serialized form of one bus message crossing the bridge.
type wireFrame struct {
	Origin       string             `json:"origin"`
	TargetOrigin string             `json:"targetOrigin"`
	Envelope     *protocol.Envelope `json:"envelope"`
}

type bridge struct {
	id      string
	conn    *websocket.Conn
	ep      *bus.MemoryEndpoint
	limiter *rate.Limiter
	log     *logging.Logger
	metrics *monitoring.Metrics

	writeMu sync.Mutex
}

func newBridge(conn *websocket.Conn, ep *bus.MemoryEndpoint, cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *bridge {
	var limiter *rate.Limiter
	if cfg.MessagesPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.MessagesPerSecond)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), burst)
	}
	id := uuid.NewString()
	return &bridge{
		id:      id,
		conn:    conn,
		ep:      ep,
		limiter: limiter,
		log:     log.With(zap.String("bridge", id), zap.String("origin", ep.Origin())),
		metrics: metrics,
	}
}

// run pumps frames both ways until the socket closes or ctx is cancelled.
func (b *bridge) run(ctx context.Context) {
	b.metrics.BridgeOpened()
	b.log.Debug("bridge opened")

	defer func() {
		b.ep.Close()
		b.conn.Close()
		b.metrics.BridgeClosed()
		b.log.Debug("bridge closed")
	}()

	cancel := b.ep.Listen(b.forward)
	defer cancel()

	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}

		if b.limiter != nil && !b.limiter.Allow() {
			b.metrics.RecordDrop(dropRateLimited)
			continue
		}

		var frame wireFrame
		if err := sonic.Unmarshal(data, &frame); err != nil || frame.Envelope == nil {
			b.metrics.RecordDrop(dropMalformed)
			continue
		}

		if err := b.ep.Post(frame.Envelope, frame.TargetOrigin); err != nil {
			return
		}
	}
}

// forward writes one bus delivery out to the remote pane.
func (b *bridge) forward(msg bus.Message) {
	frame := wireFrame{
		Origin:       msg.Origin,
		TargetOrigin: b.ep.Origin(),
		Envelope:     msg.Envelope,
	}
	payload, err := sonic.Marshal(frame)
	if err != nil {
		b.log.Warn("frame encode failed", zap.Error(err))
		return
	}

	b.writeMu.Lock()
	err = b.conn.WriteMessage(websocket.TextMessage, payload)
	b.writeMu.Unlock()
	if err != nil {
		b.log.Debug("write failed", zap.Error(err))
	}
}
