package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/commerce-platform-verify/internal/usecase"
)

// SweepHandler exposes an internal endpoint to trigger a retention sweep on
// demand, in addition to the background cadence.
type SweepHandler struct {
	sweeper *usecase.RetentionSweeper
}

func NewSweepHandler(sweeper *usecase.RetentionSweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// RegisterRoutes binds internal maintenance endpoints.
func (h *SweepHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sweep", h.Sweep)
}

// Sweep runs one retention pass and reports what was deleted.
func (h *SweepHandler) Sweep(c *gin.Context) {
	result, err := h.sweeper.SweepExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "retention sweep failed"))
		return
	}

	c.JSON(http.StatusOK, SweepResponse{
		TokensDeleted:           result.TokensDeleted,
		RateLimitRecordsDeleted: result.RateLimitRecordsDeleted,
	})
}
