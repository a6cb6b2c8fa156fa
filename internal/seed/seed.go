// Package seed bootstraps the rows the service cannot run without: one
// program configuration and one active admin API key.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/loyaltyworks/tally/internal/apikey/domain"
	"github.com/loyaltyworks/tally/internal/config"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

const (
	defaultUnitCost       = 500
	defaultInflation      = 1.0
	defaultTriggerState   = "delivered"
	defaultDailyStampCap  = 1
	defaultStampMinAmount = 0
	defaultAdminKeyName   = "bootstrap-admin"
)

// EnsureDefaults seeds the program configuration and admin API key.
// Idempotent: re-running against a seeded database is a no-op.
func EnsureDefaults(db *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	if err := ensureProgramConfig(ctx, db, genID); err != nil {
		return err
	}
	return ensureAdminAPIKey(ctx, db, cfg, genID, log.Named("seed"))
}

func ensureProgramConfig(ctx context.Context, db *gorm.DB, genID *snowflake.Node) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing programdomain.Config
		err := tx.WithContext(ctx).Take(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		return tx.WithContext(ctx).Create(&programdomain.Config{
			ID:              genID.Generate(),
			UnitCost:        defaultUnitCost,
			InflationFactor: defaultInflation,
			TriggerState:    defaultTriggerState,
			DailyStampCap:   defaultDailyStampCap,
			StampMinAmount:  defaultStampMinAmount,
			Enabled:         true,
			UpdatedBy:       "seed",
			UpdatedAt:       now,
		}).Error
	})
}

func ensureAdminAPIKey(ctx context.Context, db *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).
		Table("api_keys").
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plaintext := strings.TrimSpace(cfg.AdminAPIKey)
	generated := false
	if plaintext == "" {
		var err error
		plaintext, err = apikeydomain.GenerateAPIKey()
		if err != nil {
			return err
		}
		generated = true
	}

	key := &apikeydomain.APIKey{
		ID:        genID.Generate(),
		Name:      defaultAdminKeyName,
		KeyHash:   apikeydomain.HashAPIKey(plaintext),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, name, key_hash, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (key_hash) DO NOTHING`,
		key.ID,
		key.Name,
		key.KeyHash,
		key.IsActive,
		key.CreatedAt,
	).Error; err != nil {
		return err
	}

	if generated && !cfg.IsProduction() {
		// Shown once so a fresh dev database is usable immediately.
		log.Info("generated bootstrap admin api key", zap.String("api_key", plaintext))
	}
	return nil
}
