package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"selfserve-api/internal/metrics"
	"selfserve-api/internal/ratelimit"
)

// AdminHandler exposes instance-level operations: reading and syncing
// the instance rate limit defaults.
type AdminHandler struct {
	registry *ratelimit.Registry
}

func NewAdminHandler(registry *ratelimit.Registry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

// Handles GET /admin/rate-limits
func (h *AdminHandler) GetRateLimits(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Snapshot())
}

// Handles PUT /admin/rate-limits. The body may be partial; omitted
// categories revert to the built-in defaults. The swap is atomic, so
// in-flight requests see either the old snapshot or the new one.
func (h *AdminHandler) SyncRateLimits(c *gin.Context) {
	var req ratelimit.PlanLimits

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := h.registry.Update(req)
	metrics.RegistrySyncsTotal.Inc()

	requestID := c.GetString("request_id")
	log.Printf("[%s] instance rate limits synced by %s", requestID, c.GetString("user_id"))

	c.JSON(http.StatusOK, updated)
}
