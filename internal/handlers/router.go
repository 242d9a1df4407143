package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter registers the catalog routes on a fresh engine.
func NewRouter(h *ProductHandler) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(h.logger), gin.Recovery())

	router.GET("/health", h.HealthCheck)

	router.GET("/products", h.ListProducts)
	router.GET("/product-ids/:id", h.GetProductByID)
	router.GET("/products/:slug", h.GetProduct)
	router.GET("/products/:slug/related", h.GetRelatedProducts)
	router.GET("/icons/:name", h.ResolveIcon)

	router.POST("/cache/invalidate", h.InvalidateCache)
	router.GET("/diagnostics/requests", h.ListUpstreamRequests)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("🔀 Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
