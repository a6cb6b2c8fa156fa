package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/apikey/domain"
)

type repositoryImpl struct{}

func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Insert(ctx context.Context, db *gorm.DB, key *domain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, name, key_hash, is_active, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (key_hash) DO NOTHING`,
		key.ID,
		key.Name,
		key.KeyHash,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
	).Error
}

func (r *repositoryImpl) FindActiveByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, key_hash, is_active, expires_at, created_at
		 FROM api_keys
		 WHERE key_hash = ?
		   AND is_active = true
		   AND (expires_at IS NULL OR expires_at > ?)
		 LIMIT 1`,
		hash,
		time.Now().UTC(),
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repositoryImpl) Deactivate(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE api_keys SET is_active = false WHERE id = ?`,
		id,
	).Error
}
