package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bakery/internal/catalog"
	"bakery/internal/checkout"
	"bakery/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type CatalogFetcher interface {
	Fetch(ctx context.Context) (models.Catalog, error)
}

// CatalogResetter drops the cached catalog and every cart; *Shop is one.
type CatalogResetter interface {
	ResetCatalog(ctx context.Context) (int, error)
}

type TokenVerifier interface {
	Verify(token string) (models.Buyer, error)
}

// CartCounter reports how many carts the storage holds; nil skips the check.
type CartCounter interface {
	CountCarts(ctx context.Context) (int, error)
}

const maxCheckoutBody = 64 << 10

// APIHandler serves the mini-app: the catalog and the checkout handoff.
type APIHandler struct {
	catalog    CatalogFetcher
	reset      CatalogResetter
	tokens     TokenVerifier
	checkout   CheckoutSubmitter
	carts      CartCounter
	adminToken string
	logger     *zap.Logger
}

// NewAPIHandler builds the API. An empty adminToken disables cache clearing.
func NewAPIHandler(catalog CatalogFetcher, reset CatalogResetter, tokens TokenVerifier, checkout CheckoutSubmitter,
	carts CartCounter, adminToken string, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		catalog:    catalog,
		reset:      reset,
		tokens:     tokens,
		checkout:   checkout,
		carts:      carts,
		adminToken: adminToken,
		logger:     logger,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	{
		api.GET("/catalog", h.GetCatalog)
		api.POST("/checkout", h.PostCheckout)
		api.POST("/cache/clear", h.ClearCache)
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	if h.carts == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "bakery"})
		return
	}
	count, err := h.carts.CountCarts(c.Request.Context())
	if err != nil {
		h.logger.Warn("health check: storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "bakery", "carts": count})
}

// GetCatalog always reads the source. 404 when it has no rows, 500 otherwise.
func (h *APIHandler) GetCatalog(c *gin.Context) {
	products, err := h.catalog.Fetch(c.Request.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No data found in spreadsheet"})
			return
		}
		h.logger.Error("catalog fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch catalog data",
			"details": err.Error(),
		})
		return
	}

	body, err := json.Marshal(products)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch catalog data", "details": err.Error()})
		return
	}
	etag := CatalogETag(body)
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// CatalogETag is a strong validator over the encoded catalog.
func CatalogETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

type checkoutRequest struct {
	Cart []models.LineItem `json:"cart"`
}

func bearerToken(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
}

func (h *APIHandler) PostCheckout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
		return
	}
	buyer, err := h.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCheckoutBody)
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payload, err := h.checkout.Submit(buyer, req.Cart)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			return
		}
		if errors.Is(err, checkout.ErrCartTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is too large", "details": err.Error()})
			return
		}
		h.logger.Error("checkout handoff failed", zap.Int64("chat_id", buyer.ChatID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to hand off order", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// ClearCache resets the catalog and every cart. It needs the admin token.
func (h *APIHandler) ClearCache(c *gin.Context) {
	if h.adminToken == "" || h.reset == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "cache clearing is disabled"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(bearerToken(c)), []byte(h.adminToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
		return
	}

	products, err := h.reset.ResetCatalog(c.Request.Context())
	if err != nil {
		h.logger.Error("cache clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "products": products})
}
