// Package server assembles the demo crosspane host: a shared in-process bus,
// a WebSocket bridge for remote panes, and health/metrics endpoints.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/config"
	"github.com/crosspane/crosspane/internal/logging"
	"github.com/crosspane/crosspane/internal/monitoring"
	"github.com/crosspane/crosspane/internal/ws"
)

// Server wraps the HTTP surface and the shared bus.
type Server struct {
	router  *gin.Engine
	bus     *bus.MemoryBus
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New assembles a host server from configuration.
func New(cfg *config.Config, log *logging.Logger, metrics *monitoring.Metrics) *Server {
	log = logging.Ensure(log).Named("server")
	sharedBus := bus.NewMemoryBus()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	wsHandler := ws.NewHandler(sharedBus, ws.Config{
		MessagesPerSecond: cfg.Bridge.MessagesPerSecond,
		Burst:             cfg.Bridge.Burst,
	}, log, metrics)

	s := &Server{
		router:  router,
		bus:     sharedBus,
		log:     log,
		metrics: metrics,
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.HandleConnection)

	return s
}

// Bus exposes the shared channel so the host can attach local pairings.
func (s *Server) Bus() *bus.MemoryBus { return s.bus }

// Run starts serving on addr.
func (s *Server) Run(addr string) error {
	s.log.Info("starting host", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close releases the shared bus.
func (s *Server) Close() error {
	s.bus.Close()
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
