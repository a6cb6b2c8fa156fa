package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/loyaltyworks/tally/internal/ledger/domain"
)

// @Summary      Get Wallet
// @Description  Read the combined points and stamp balances for one user
// @Tags         wallet
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  ledgerdomain.WalletView
// @Router       /users/{id}/wallet [get]
func (s *Server) GetWallet(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Ledger Entries
// @Description  Read recent ledger entries for one user, newest first
// @Tags         wallet
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id        path      string  true   "User ID"
// @Param        currency  query     string  false  "Currency (points|stamps)"
// @Param        limit     query     int     false  "Limit"
// @Success      200  {object}  []ledgerdomain.LedgerEntry
// @Router       /users/{id}/ledger [get]
func (s *Server) ListLedgerEntries(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Currency string `form:"currency"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.ListEntries(c.Request.Context(), ledgerdomain.ListEntriesRequest{
		UserID:   userID,
		Currency: ledgerdomain.Currency(strings.TrimSpace(query.Currency)),
		Limit:    query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type manualAdjustRequest struct {
	Currency string `json:"currency"`
	Delta    int64  `json:"delta"`
	Actor    string `json:"actor"`
	Reason   string `json:"reason"`
	Token    string `json:"token"`
}

// @Summary      Manual Adjustment
// @Description  Apply an admin balance correction through the idempotent ledger
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string               true  "User ID"
// @Param        request  body  manualAdjustRequest  true  "Adjustment"
// @Success      200  {object}  ledgerdomain.ApplyResult
// @Router       /users/{id}/adjustments [post]
func (s *Server) ManualAdjust(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req manualAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.ManualAdjust(c.Request.Context(), ledgerdomain.ManualAdjustRequest{
		UserID:   userID,
		Currency: ledgerdomain.Currency(strings.TrimSpace(req.Currency)),
		Delta:    req.Delta,
		Actor:    strings.TrimSpace(req.Actor),
		Reason:   strings.TrimSpace(req.Reason),
		Token:    strings.TrimSpace(req.Token),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseUserID(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newValidationError("id", "invalid_user_id", "invalid user id")
	}
	return snowflake.ID(id), nil
}
