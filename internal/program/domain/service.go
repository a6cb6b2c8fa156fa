package domain

import (
	"context"
	"errors"
)

// UpdateRequest carries an admin change to the program parameters. Nil
// fields keep the current value.
type UpdateRequest struct {
	UnitCost        *int64
	InflationFactor *float64
	TriggerState    *string
	DailyStampCap   *int64
	StampMinAmount  *int64
	Enabled         *bool
	Actor           string
}

// Service reads and writes the program configuration. Reads are served
// from a short-lived cache; writes flush it.
type Service interface {
	Current(ctx context.Context) (Config, error)
	Update(ctx context.Context, req UpdateRequest) (Config, error)
}

var (
	ErrNotConfigured    = errors.New("program_not_configured")
	ErrInvalidUnitCost  = errors.New("invalid_unit_cost")
	ErrInvalidInflation = errors.New("invalid_inflation_factor")
	ErrInvalidTrigger   = errors.New("invalid_trigger_state")
	ErrInvalidDailyCap  = errors.New("invalid_daily_cap")
	ErrInvalidStampMin  = errors.New("invalid_stamp_min_amount")
	ErrActorRequired    = errors.New("actor_required")
)
