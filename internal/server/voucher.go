package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	voucherdomain "github.com/loyaltyworks/tally/internal/voucher/domain"
)

type issueVoucherRequest struct {
	UserID   string `json:"user_id"`
	RewardID string `json:"reward_id"`
}

// @Summary      Issue Voucher
// @Description  Spend points on a reward and mint a voucher code
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body issueVoucherRequest true "Issue Voucher Request"
// @Success      200  {object}  voucherdomain.Voucher
// @Router       /vouchers [post]
func (s *Server) IssueVoucher(c *gin.Context) {
	var req issueVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseSnowflake(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
		return
	}
	rewardID, err := parseSnowflake(req.RewardID)
	if err != nil {
		AbortWithError(c, newValidationError("reward_id", "invalid_reward_id", "invalid reward id"))
		return
	}

	resp, err := s.voucherSvc.Issue(c.Request.Context(), voucherdomain.IssueRequest{
		UserID:   userID,
		RewardID: rewardID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Voucher
// @Description  Look up a voucher by its code
// @Tags         vouchers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        code  path      string  true  "Voucher Code"
// @Success      200  {object}  voucherdomain.Voucher
// @Router       /vouchers/{code} [get]
func (s *Server) GetVoucherByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.voucherSvc.GetByCode(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type redeemVoucherRequest struct {
	RedeemedBy string `json:"redeemed_by"`
	Channel    string `json:"channel"`
	Note       string `json:"note"`
}

// @Summary      Redeem Voucher
// @Description  Consume a voucher. Terminal vouchers come back with their
// @Description  current status instead of an error.
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        code     path  string                true  "Voucher Code"
// @Param        request  body  redeemVoucherRequest  true  "Redeem Request"
// @Success      200  {object}  voucherdomain.Voucher
// @Router       /vouchers/{code}/redeem [post]
func (s *Server) RedeemVoucher(c *gin.Context) {
	var req redeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.voucherSvc.Redeem(c.Request.Context(), voucherdomain.RedeemRequest{
		Code:       strings.TrimSpace(c.Param("code")),
		RedeemedBy: strings.TrimSpace(req.RedeemedBy),
		Channel:    strings.TrimSpace(req.Channel),
		Note:       strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelVoucherRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// @Summary      Cancel Voucher
// @Description  Administratively void an unredeemed voucher
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        code     path  string                true  "Voucher Code"
// @Param        request  body  cancelVoucherRequest  true  "Cancel Request"
// @Success      200  {object}  voucherdomain.Voucher
// @Router       /vouchers/{code}/cancel [post]
func (s *Server) CancelVoucher(c *gin.Context) {
	var req cancelVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.voucherSvc.Cancel(c.Request.Context(), voucherdomain.CancelRequest{
		Code:   strings.TrimSpace(c.Param("code")),
		Actor:  strings.TrimSpace(req.Actor),
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List User Vouchers
// @Description  List vouchers held by one user, newest first
// @Tags         vouchers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id     path      string  true   "User ID"
// @Param        limit  query     int     false  "Limit"
// @Success      200  {object}  []voucherdomain.Voucher
// @Router       /users/{id}/vouchers [get]
func (s *Server) ListUserVouchers(c *gin.Context) {
	userID, err := parseUserID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
	}

	resp, err := s.voucherSvc.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseSnowflake(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return snowflake.ID(id), nil
}
