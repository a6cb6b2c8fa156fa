package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loyaltyworks/tally/internal/possync"
)

// @Summary      Trigger Sync Run
// @Description  Run one POS reconciliation pass immediately
// @Tags         sync
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  possync.RunSummary
// @Router       /sync/runs [post]
func (s *Server) TriggerSyncRun(c *gin.Context) {
	keyID, _ := c.Request.Context().Value(contextAPIKeyIDKey).(int64)
	if !s.syncLimiter.Allow(strconv.FormatInt(keyID, 10)) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	summary, err := s.worker.RunOnce(c.Request.Context(), possync.TriggerManual)
	if err != nil {
		// The summary still describes the partial pass; surface both.
		c.JSON(http.StatusBadGateway, gin.H{
			"data": summary,
			"error": apiError{
				Status:  http.StatusBadGateway,
				Code:    "sync_failed",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
