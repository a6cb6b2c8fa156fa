// Package domain holds the tunable loyalty program parameters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Config is the singleton-like program configuration row read by every
// accrual computation and writable only by privileged actors.
type Config struct {
	ID snowflake.ID `gorm:"primaryKey" json:"-"`

	// UnitCost is the monetary amount (smallest unit) worth one point
	// before inflation.
	UnitCost int64 `gorm:"not null" json:"unit_cost"`

	// InflationFactor scales the unit cost; always >= 1.
	InflationFactor float64 `gorm:"not null;default:1.0" json:"inflation_factor"`

	// TriggerState is the internal sale lifecycle state that fires accrual.
	TriggerState string `gorm:"type:text;not null" json:"trigger_state"`

	// DailyStampCap limits stamps per user per calendar day.
	DailyStampCap int64 `gorm:"not null;default:1" json:"daily_stamp_cap"`

	// StampMinAmount gates stamp accrual on a minimum purchase amount.
	StampMinAmount int64 `gorm:"not null;default:0" json:"stamp_min_amount"`

	Enabled   bool      `gorm:"not null;default:true" json:"enabled"`
	UpdatedBy string    `gorm:"type:text" json:"updated_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Config) TableName() string { return "program_configs" }
