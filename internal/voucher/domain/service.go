package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// IssueRequest spends points on a reward and produces a voucher.
type IssueRequest struct {
	UserID   snowflake.ID
	RewardID snowflake.ID
}

// RedeemRequest consumes a voucher at a point of sale. RedeemedBy and
// Channel are recorded for audit.
type RedeemRequest struct {
	Code       string
	RedeemedBy string
	Channel    string
	Note       string
}

// CancelRequest administratively voids an unredeemed voucher.
type CancelRequest struct {
	Code   string
	Actor  string
	Reason string
}

// CreateRewardRequest adds a catalog item.
type CreateRewardRequest struct {
	Name         string
	Description  string
	PointCost    int64
	Kind         string
	ValidityDays int64
}

// Service implements the voucher state machine. Redeem and Cancel return
// the voucher with its current status rather than erroring on already
// terminal states, so callers can show "already used" instead of a
// generic failure.
type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*Voucher, error)
	Redeem(ctx context.Context, req RedeemRequest) (*Voucher, error)
	Cancel(ctx context.Context, req CancelRequest) (*Voucher, error)
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]Voucher, error)

	CreateReward(ctx context.Context, req CreateRewardRequest) (*Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]Reward, error)
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidReward       = errors.New("invalid_reward")
	ErrRewardNotFound      = errors.New("reward_not_found")
	ErrRewardInactive      = errors.New("reward_inactive")
	ErrVoucherNotFound     = errors.New("voucher_not_found")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrRedeemerRequired    = errors.New("redeemer_required")
	ErrActorRequired       = errors.New("actor_required")
	ErrCodeCollision       = errors.New("code_collision")
)
