// Package domain contains the loyalty ledger: the append-only journal that
// is the source of truth for every wallet and stamp-card balance.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Currency distinguishes the two balance kinds the program tracks.
type Currency string

const (
	CurrencyPoints Currency = "points"
	CurrencyStamps Currency = "stamps"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryKindEarn   EntryKind = "earn"
	EntryKindRevoke EntryKind = "revoke"
	EntryKindManual EntryKind = "manual"
	EntryKindRedeem EntryKind = "redeem"
)

// Event sources recorded on ledger entries.
const (
	SourcePOS    = "pos"
	SourceInApp  = "in_app"
	SourceManual = "manual_admin"
)

// Reference types. The (source, reference_type, reference_id, kind, currency)
// tuple is the idempotency key; reference ids must be stable identifiers of
// the external event, never timestamps.
const (
	ReferenceTypePurchase    = "purchase"
	ReferenceTypeManualToken = "manual_token"
	ReferenceTypeVoucher     = "voucher"
)

// Structured no-op reasons. Callers treat these as success, not failure.
const (
	ReasonAlreadyApplied = "already_applied"
	ReasonDisabled       = "program_disabled"
	ReasonNoRewardDue    = "no_reward_due"
	ReasonBelowMinimum   = "below_minimum_amount"
	ReasonDailyLimit     = "daily_limit"
	ReasonNoEarnFound    = "no_earn_entry"
)

// Wallet is the denormalized points balance, maintained exclusively through
// atomic increments driven by ledger writes.
type Wallet struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	Balance   int64        `gorm:"not null;default:0"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Wallet) TableName() string { return "wallets" }

// StampCard is the denormalized stamp balance. LifetimeCount only ever
// grows on earns; revokes decrement the current count alone.
type StampCard struct {
	UserID        snowflake.ID `gorm:"primaryKey"`
	CurrentCount  int64        `gorm:"not null;default:0"`
	LifetimeCount int64        `gorm:"not null;default:0"`
	UpdatedAt     time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (StampCard) TableName() string { return "stamp_cards" }

// LedgerEntry is one immutable journal row. Reversals are new rows that
// reference the same idempotency key with kind "revoke".
type LedgerEntry struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	UserID        snowflake.ID      `gorm:"not null;index"`
	Currency      Currency          `gorm:"type:text;not null"`
	Kind          EntryKind         `gorm:"type:text;not null"`
	Delta         int64             `gorm:"not null"`
	Source        string            `gorm:"type:text;not null"`
	ReferenceType string            `gorm:"type:text;not null"`
	ReferenceID   string            `gorm:"type:text;not null"`
	AmountBasis   *int64            `gorm:""`
	Reason        string            `gorm:"type:text;not null;default:''"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// DailyStampRegister is the per-user, per-calendar-day semaphore. The
// uniqueness constraint on (user_id, calendar_day) is the actual cap
// enforcement; application-level checks are advisory only.
type DailyStampRegister struct {
	UserID        snowflake.ID `gorm:"not null"`
	CalendarDay   string       `gorm:"type:text;not null"`
	LedgerEntryID snowflake.ID `gorm:"not null"`
	CreatedAt     time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (DailyStampRegister) TableName() string { return "daily_stamp_register" }

// CalendarDayFormat renders a calendar-day key, always in UTC.
const CalendarDayFormat = "2006-01-02"
