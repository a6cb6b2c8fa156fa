package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// FindByPhone resolves a normalized phone. A nil result with nil error
	// means no match, which is a valid, expected outcome.
	FindByPhone(ctx context.Context, db *gorm.DB, phoneLast10 string) (*Customer, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidPhone = errors.New("invalid_phone")
	ErrPhoneTaken   = errors.New("phone_taken")
)
