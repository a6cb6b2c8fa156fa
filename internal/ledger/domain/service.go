package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ApplyResult reports the outcome of an accrual attempt. Applied=false with
// a Reason is an expected no-op, not an error; callers must treat it as
// success.
type ApplyResult struct {
	Applied bool
	Reason  string
	EntryID snowflake.ID
	Delta   int64
}

// NoOp builds a not-applied result.
func NoOp(reason string) ApplyResult {
	return ApplyResult{Applied: false, Reason: reason}
}

// AccrualRequest identifies one qualifying external event.
type AccrualRequest struct {
	UserID        snowflake.ID
	Source        string
	ReferenceType string
	ReferenceID   string
	// Amount is the monetary basis the reward is computed from, in the
	// smallest currency unit.
	Amount int64
}

// RevokeRequest reverses a prior earn for the same reference.
type RevokeRequest struct {
	Currency      Currency
	Source        string
	ReferenceType string
	ReferenceID   string
	Reason        string
}

// ManualAdjustRequest is an admin-initiated balance correction. Actor and
// Reason are mandatory for audit; Token is the caller-supplied idempotency
// token so a retried submission never double-applies.
type ManualAdjustRequest struct {
	UserID   snowflake.ID
	Currency Currency
	Delta    int64
	Actor    string
	Reason   string
	Token    string
}

// WalletView is the combined read model for one user.
type WalletView struct {
	UserID        snowflake.ID `json:"user_id"`
	PointsBalance int64        `json:"points_balance"`
	StampCount    int64        `json:"stamp_count"`
	LifetimeCount int64        `json:"lifetime_stamps"`
}

// ListEntriesRequest filters the journal read path.
type ListEntriesRequest struct {
	UserID   snowflake.ID
	Currency Currency
	Limit    int
}

// Service is the ledger writer. Every method is idempotent per the entry
// idempotency key.
type Service interface {
	// ApplyPoints accrues points for a purchase. No-op when the program is
	// disabled, when no points are due, or when the key was already applied.
	ApplyPoints(ctx context.Context, req AccrualRequest) (ApplyResult, error)

	// ApplyStamp accrues one stamp for a delivery purchase, enforcing the
	// per-day cap atomically at the storage layer.
	ApplyStamp(ctx context.Context, req AccrualRequest) (ApplyResult, error)

	// Revoke nets a prior earn to zero with a compensating entry. The
	// reversal amount is read from the original entry, never recomputed.
	Revoke(ctx context.Context, req RevokeRequest) (ApplyResult, error)

	// ManualAdjust applies an admin correction through the same idempotent
	// primitives. Requests without actor or reason are rejected before any
	// write.
	ManualAdjust(ctx context.Context, req ManualAdjustRequest) (ApplyResult, error)

	// Balance reads the denormalized wallet and stamp card.
	Balance(ctx context.Context, userID snowflake.ID) (WalletView, error)

	// ListEntries reads recent journal rows, newest first.
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]LedgerEntry, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrInvalidDelta       = errors.New("invalid_delta")
	ErrActorRequired      = errors.New("actor_required")
	ErrReasonRequired     = errors.New("reason_required")
	ErrInsufficientPoints = errors.New("insufficient_points")

	// ErrDailyCapReached aborts the stamp transaction when the register
	// insert conflicts. It never escapes the service; callers see a
	// structured "daily_limit" no-op instead.
	ErrDailyCapReached = errors.New("daily_cap_reached")
)
