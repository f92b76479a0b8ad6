// Package httpapi wires the ops/webhook HTTP surface: the heartbeat
// endpoints, Prometheus metrics, and the inbound event webhook feeding the
// dispatcher. The surface is deliberately small — the relay's real interface
// is the chat transport, not HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/coretraderinfo-glitch/trojan-bot/internal/http/middleware"
	"github.com/coretraderinfo-glitch/trojan-bot/internal/transport"
)

// EventSink receives decoded inbound events. *bot.Dispatcher satisfies it.
type EventSink interface {
	HandleUpdate(ctx context.Context, ev *transport.Event)
}

// HealthSource exposes the connection state reported on /health.
type HealthSource interface {
	Connected() bool
}

// RegisterRoutes attaches middleware and endpoints to the Gin engine.
//
// Middleware order: tracing → request ID → access log → recovery → gzip.
func RegisterRoutes(r *gin.Engine, serviceName string, sink EventSink, health HealthSource) {
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Heartbeat for uptime monitors.
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "relay alive")
	})

	// Liveness + degraded-mode visibility.
	r.GET("/health", func(c *gin.Context) {
		state := "disconnected"
		if health.Connected() {
			state = "connected"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": state})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Inbound events from the transport sidecar. The webhook acknowledges
	// as soon as the event is decoded; handling happens on this request's
	// goroutine, and independent events may arrive concurrently.
	r.POST("/events", func(c *gin.Context) {
		var ev transport.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "bad_event", "message": err.Error()})
			return
		}
		sink.HandleUpdate(c.Request.Context(), &ev)
		c.Status(http.StatusNoContent)
	})
}
