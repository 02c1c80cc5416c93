package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sepet/models"
	"sepet/services"
	"sepet/utils"
)

// Searcher runs one price search.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog  *services.Catalog
	searcher Searcher
	logger   *utils.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog *services.Catalog, searcher Searcher, logger *utils.Logger) *Handler {
	return &Handler{catalog: catalog, searcher: searcher, logger: logger}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sepet",
		"shops":   h.catalog.Registry().Len(),
	})
}

// ListShops returns the configured shops in configuration order.
func (h *Handler) ListShops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"shops": h.catalog.Shops()})
}

// ListCategories returns the category names sorted for display.
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.SortedCategories()})
}

// SearchJSON handles POST /api/v1/search with a JSON body.
func (h *Handler) SearchJSON(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	h.search(c, req)
}

// SearchQuery handles GET /api/v1/search. Shops come from repeated "shop"
// parameters or a comma-separated "shops" list.
func (h *Handler) SearchQuery(c *gin.Context) {
	req := models.SearchRequest{
		Query:         c.Query("q"),
		ShopIDs:       c.QueryArray("shop"),
		Category:      c.Query("category"),
		DateRange:     c.Query("date_range"),
		ProductSearch: c.Query("product_search"),
	}
	if list := c.Query("shops"); list != "" {
		req.ShopIDs = append(req.ShopIDs, strings.Split(list, ",")...)
	}
	h.search(c, req)
}

func (h *Handler) search(c *gin.Context, req models.SearchRequest) {
	result, err := h.searcher.Search(c.Request.Context(), req)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": ve.Error(),
				"field": ve.Field,
			})
			return
		}
		h.logger.Error("[api] search %q failed: %v", req.Query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
