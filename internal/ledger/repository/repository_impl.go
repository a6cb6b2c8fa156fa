package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/ledger/domain"
)

type repositoryImpl struct{}

// Provide constructs the ledger repository.
func Provide() domain.Repository {
	return repositoryImpl{}
}

func (repositoryImpl) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, user_id, currency, kind, delta, source, reference_type,
			reference_id, amount_basis, reason, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, reference_type, reference_id, kind, currency) DO NOTHING`,
		entry.ID,
		entry.UserID,
		entry.Currency,
		entry.Kind,
		entry.Delta,
		entry.Source,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.AmountBasis,
		entry.Reason,
		entry.Metadata,
		entry.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repositoryImpl) FindEntry(
	ctx context.Context,
	db *gorm.DB,
	currency domain.Currency,
	source, referenceType, referenceID string,
	kind domain.EntryKind,
) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("currency = ? AND source = ? AND reference_type = ? AND reference_id = ? AND kind = ?",
			currency, source, referenceType, referenceID, kind).
		Take(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (repositoryImpl) ListEntries(ctx context.Context, db *gorm.DB, req domain.ListEntriesRequest) ([]domain.LedgerEntry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := db.WithContext(ctx).Where("user_id = ?", req.UserID)
	if req.Currency != "" {
		query = query.Where("currency = ?", req.Currency)
	}
	var entries []domain.LedgerEntry
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (repositoryImpl) IncrementWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wallets (user_id, balance, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = wallets.balance + ?, updated_at = ?`,
		userID,
		delta,
		now,
		delta,
		now,
	).Error
}

func (repositoryImpl) DebitWalletIfEnough(ctx context.Context, db *gorm.DB, userID snowflake.ID, cost int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance = balance - ?, updated_at = ?
		 WHERE user_id = ? AND balance >= ?`,
		cost,
		now,
		userID,
		cost,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repositoryImpl) IncrementStamps(ctx context.Context, db *gorm.DB, userID snowflake.ID, delta, lifetimeDelta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stamp_cards (user_id, current_count, lifetime_count, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET current_count = stamp_cards.current_count + ?,
		     lifetime_count = stamp_cards.lifetime_count + ?,
		     updated_at = ?`,
		userID,
		delta,
		lifetimeDelta,
		now,
		delta,
		lifetimeDelta,
		now,
	).Error
}

func (repositoryImpl) InsertDailyStamp(ctx context.Context, db *gorm.DB, userID snowflake.ID, calendarDay string, entryID snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO daily_stamp_register (user_id, calendar_day, ledger_entry_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, calendar_day) DO NOTHING`,
		userID,
		calendarDay,
		entryID,
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repositoryImpl) DeleteDailyStampByEntry(ctx context.Context, db *gorm.DB, entryID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM daily_stamp_register WHERE ledger_entry_id = ?`,
		entryID,
	).Error
}

func (repositoryImpl) GetWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &domain.Wallet{UserID: userID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (repositoryImpl) GetStampCard(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.StampCard, error) {
	var card domain.StampCard
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &domain.StampCard{UserID: userID}, nil
		}
		return nil, err
	}
	return &card, nil
}
