package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/designify-catalog/internal/models"
)

// Catalog is the read side the handlers render.
type Catalog interface {
	ListAll(ctx context.Context) []models.Product
	ListAllFull(ctx context.Context) []models.Product
	GetByID(ctx context.Context, id int) (models.Product, bool)
	GetBySlug(ctx context.Context, slug string) (models.Product, bool)
	GetFull(ctx context.Context, slug string) (models.Product, bool)
	GetRelated(ctx context.Context, currentID, limit int) []models.Product
}

// Pinger reports whether the upstream product API answers.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// RequestLog lists recent upstream request outcomes.
type RequestLog interface {
	Recent(ctx context.Context, limit int) ([]models.RequestAudit, error)
}

// InvalidateFunc drops cached catalog data.
type InvalidateFunc func(ctx context.Context, reason string) error

type ProductHandler struct {
	service    string
	catalog    Catalog
	upstream   Pinger
	requests   RequestLog
	invalidate InvalidateFunc
	logger     *zap.Logger
}

type HandlerOption func(*ProductHandler)

func WithRequestLog(l RequestLog) HandlerOption {
	return func(h *ProductHandler) { h.requests = l }
}

func WithInvalidate(f InvalidateFunc) HandlerOption {
	return func(h *ProductHandler) { h.invalidate = f }
}

func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *ProductHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewProductHandler(service string, catalog Catalog, upstream Pinger, opts ...HandlerOption) *ProductHandler {
	h := &ProductHandler{
		service:  service,
		catalog:  catalog,
		upstream: upstream,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck returns server status
func (h *ProductHandler) HealthCheck(c *gin.Context) {
	upstreamOK := h.upstream != nil && h.upstream.Ping(c.Request.Context())

	status := "healthy"
	if !upstreamOK {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  h.service,
		"upstream": upstreamOK,
	})
}

// ListProducts returns the catalog, with details merged in when full=true
func (h *ProductHandler) ListProducts(c *gin.Context) {
	full, _ := strconv.ParseBool(c.Query("full"))

	var products []models.Product
	if full {
		products = h.catalog.ListAllFull(c.Request.Context())
	} else {
		products = h.catalog.ListAll(c.Request.Context())
	}

	c.JSON(http.StatusOK, products)
}

// GetProductByID returns a single product by numeric id
func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	product, ok := h.catalog.GetByID(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// GetProduct returns a product page: the product with its details
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, ok := h.catalog.GetFull(c.Request.Context(), c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// GetRelatedProducts returns products to suggest next to slug
func (h *ProductHandler) GetRelatedProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	product, ok := h.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, h.catalog.GetRelated(c.Request.Context(), product.ID, limit))
}

// ResolveIcon maps an icon name onto the icon set
func (h *ProductHandler) ResolveIcon(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"icon": models.ResolveIcon(c.Param("name"))})
}

// InvalidateCache drops cached catalog data on every instance
func (h *ProductHandler) InvalidateCache(c *gin.Context) {
	if h.invalidate == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache disabled"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// the body is optional
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual"
	}

	if err := h.invalidate(c.Request.Context(), req.Reason); err != nil {
		h.logger.Error("❌ Failed to invalidate cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("🗑️ Cache invalidation requested", zap.String("reason", req.Reason))
	c.JSON(http.StatusAccepted, gin.H{"message": "cache invalidation accepted"})
}

// ListUpstreamRequests returns recent upstream request outcomes
func (h *ProductHandler) ListUpstreamRequests(c *gin.Context) {
	if h.requests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request audit disabled"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.requests.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}
