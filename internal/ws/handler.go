package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin trust is enforced per-message by the protocol sanitizer,
		// not at upgrade time.
		return true
	},
}

// Config holds bridge limits.
type Config struct {
	// MessagesPerSecond bounds inbound frames per connection; excess
	// frames are dropped. Zero disables the limiter.
	MessagesPerSecond float64
	Burst             int
}

// Handler upgrades HTTP connections into bus bridges.
type Handler struct {
	bus     *bus.MemoryBus
	cfg     Config
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a WebSocket bridge handler over b.
func NewHandler(b *bus.MemoryBus, cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		bus:     b,
		cfg:     cfg,
		log:     logging.Ensure(log).Named("ws"),
		metrics: metrics,
	}
}

// HandleConnection upgrades the request and runs the bridge until the peer
// disconnects. The pane declares its origin via the `origin` query
// parameter; it becomes the endpoint's bus address.
func (h *Handler) HandleConnection(c *gin.Context) {
	origin := c.Query("origin")
	if origin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	br := newBridge(conn, h.bus.Attach(origin), h.cfg, h.log, h.metrics)
	br.run(c.Request.Context())
}
