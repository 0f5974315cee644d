package api

import (
	_ "embed"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed static/index.html
var indexHTML []byte

// RegisterRoutes mounts the API on r. rl may be nil to disable rate limiting
// of /api/compose.
func RegisterRoutes(r *gin.Engine, h *Handler, rl *RateLimiter) {
	r.GET("/", index)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	compose := []gin.HandlerFunc{h.compose}
	if rl != nil {
		compose = append([]gin.HandlerFunc{rl.Middleware()}, compose...)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/message", h.message)
		api.GET("/frame/:orientation", h.frame)
		api.POST("/compose", compose...)
		api.GET("/qr", h.qr)
	}
}
