package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	voucherdomain "github.com/loyaltyworks/tally/internal/voucher/domain"
)

type createRewardRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PointCost    int64  `json:"point_cost"`
	Kind         string `json:"kind"`
	ValidityDays int64  `json:"validity_days"`
}

// @Summary      Create Reward
// @Description  Add a reward to the catalog
// @Tags         rewards
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body createRewardRequest true "Create Reward Request"
// @Success      200  {object}  voucherdomain.Reward
// @Router       /rewards [post]
func (s *Server) CreateReward(c *gin.Context) {
	var req createRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.voucherSvc.CreateReward(c.Request.Context(), voucherdomain.CreateRewardRequest{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		PointCost:    req.PointCost,
		Kind:         strings.TrimSpace(req.Kind),
		ValidityDays: req.ValidityDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Rewards
// @Description  List catalog rewards
// @Tags         rewards
// @Produce      json
// @Security     ApiKeyAuth
// @Param        active  query     bool  false  "Only active rewards"
// @Success      200  {object}  []voucherdomain.Reward
// @Router       /rewards [get]
func (s *Server) ListRewards(c *gin.Context) {
	activeOnly := strings.TrimSpace(c.Query("active")) == "true"

	resp, err := s.voucherSvc.ListRewards(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
