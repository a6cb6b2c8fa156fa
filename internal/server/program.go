package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

// @Summary      Get Program Config
// @Description  Read the current loyalty program parameters
// @Tags         program
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  programdomain.Config
// @Router       /program [get]
func (s *Server) GetProgramConfig(c *gin.Context) {
	resp, err := s.programSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProgramRequest struct {
	UnitCost        *int64   `json:"unit_cost"`
	InflationFactor *float64 `json:"inflation_factor"`
	TriggerState    *string  `json:"trigger_state"`
	DailyStampCap   *int64   `json:"daily_stamp_cap"`
	StampMinAmount  *int64   `json:"stamp_min_amount"`
	Enabled         *bool    `json:"enabled"`
	Actor           string   `json:"actor"`
}

// @Summary      Update Program Config
// @Description  Change program parameters; omitted fields keep their value
// @Tags         program
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body updateProgramRequest true "Update Program Request"
// @Success      200  {object}  programdomain.Config
// @Router       /program [patch]
func (s *Server) UpdateProgramConfig(c *gin.Context) {
	var req updateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.programSvc.Update(c.Request.Context(), programdomain.UpdateRequest{
		UnitCost:        req.UnitCost,
		InflationFactor: req.InflationFactor,
		TriggerState:    req.TriggerState,
		DailyStampCap:   req.DailyStampCap,
		StampMinAmount:  req.StampMinAmount,
		Enabled:         req.Enabled,
		Actor:           strings.TrimSpace(req.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
