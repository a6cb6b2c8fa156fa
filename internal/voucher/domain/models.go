// Package domain contains vouchers: time-boxed, uniquely coded artifacts
// produced by spending points, with a one-way status machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the voucher lifecycle state. Transitions are monotonic:
// issued -> redeemed | expired | canceled, all terminal.
type Status string

const (
	StatusIssued   Status = "issued"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusRedeemed || s == StatusExpired || s == StatusCanceled
}

// Reward is a catalog item a voucher can be issued against.
type Reward struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text;not null;default:''" json:"description"`
	PointCost   int64        `gorm:"not null" json:"point_cost"`
	Kind        string       `gorm:"type:text;not null" json:"kind"`
	// ValidityDays bounds issued vouchers; zero means no expiry.
	ValidityDays int64     `gorm:"not null;default:0" json:"validity_days"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Reward) TableName() string { return "rewards" }

// Voucher is one issued, externally presentable reward token. The code is
// opaque and unique across all vouchers regardless of kind.
type Voucher struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Code              string       `gorm:"type:text;not null;unique" json:"code"`
	UserID            snowflake.ID `gorm:"not null;index" json:"user_id"`
	RewardID          snowflake.ID `gorm:"not null" json:"reward_id"`
	RewardName        string       `gorm:"type:text;not null" json:"reward_name"`
	Cost              int64        `gorm:"not null" json:"cost"`
	Status            Status       `gorm:"type:text;not null" json:"status"`
	IssuedAt          time.Time    `gorm:"not null" json:"issued_at"`
	ExpiresAt         *time.Time   `gorm:"" json:"expires_at,omitempty"`
	RedeemedAt        *time.Time   `gorm:"" json:"redeemed_at,omitempty"`
	RedeemedBy        string       `gorm:"type:text" json:"redeemed_by,omitempty"`
	RedemptionChannel string       `gorm:"type:text" json:"redemption_channel,omitempty"`
	RedemptionNote    string       `gorm:"type:text" json:"redemption_note,omitempty"`
}

// TableName sets the database table name.
func (Voucher) TableName() string { return "vouchers" }
