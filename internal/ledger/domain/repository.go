package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository holds the storage primitives the ledger and voucher services
// compose inside their own transactions. Exclusivity comes from uniqueness
// constraints and atomic UPDATE statements, never from in-process locking.
type Repository interface {
	// InsertEntry writes a journal row with ON CONFLICT DO NOTHING on the
	// idempotency key. Returns false when the key already exists.
	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)

	// FindEntry loads the journal row for an idempotency key.
	FindEntry(ctx context.Context, db *gorm.DB, currency Currency, source, referenceType, referenceID string, kind EntryKind) (*LedgerEntry, error)

	// ListEntries reads a user's journal, newest first.
	ListEntries(ctx context.Context, db *gorm.DB, req ListEntriesRequest) ([]LedgerEntry, error)

	// IncrementWallet adjusts the points balance by delta as a single
	// atomic upsert, creating the wallet lazily on first accrual.
	IncrementWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta int64, now time.Time) error

	// DebitWalletIfEnough decrements the balance only when it covers the
	// cost. Returns false (and writes nothing) otherwise.
	DebitWalletIfEnough(ctx context.Context, db *gorm.DB, userID snowflake.ID, cost int64, now time.Time) (bool, error)

	// IncrementStamps adjusts the stamp counters. lifetimeDelta is zero
	// for revokes so the lifetime count never shrinks below earned history.
	IncrementStamps(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta, lifetimeDelta int64, now time.Time) error

	// InsertDailyStamp claims the (user, calendar day) semaphore. Returns
	// false when the user is already capped for that day.
	InsertDailyStamp(ctx context.Context, db *gorm.DB, userID snowflake.ID, calendarDay string, entryID snowflake.ID, now time.Time) (bool, error)

	// DeleteDailyStampByEntry releases the semaphore row that was claimed
	// alongside a now-revoked stamp earn.
	DeleteDailyStampByEntry(ctx context.Context, db *gorm.DB, entryID snowflake.ID) error

	// GetWallet and GetStampCard read the denormalized balances; both
	// return zero-valued rows for users with no history yet.
	GetWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Wallet, error)
	GetStampCard(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*StampCard, error)
}
