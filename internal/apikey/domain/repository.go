package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	// FindActiveByHash resolves a key hash to its active, unexpired
	// record. Nil with nil error means no match.
	FindActiveByHash(ctx context.Context, db *gorm.DB, hash string) (*APIKey, error)
	Deactivate(ctx context.Context, db *gorm.DB, id int64) error
}
