package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/customer/domain"
)

type repositoryImpl struct{}

// Provide constructs the customer repository.
func Provide() domain.Repository {
	return repositoryImpl{}
}

func (repositoryImpl) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	if strings.TrimSpace(customer.Name) == "" {
		return domain.ErrInvalidName
	}
	customer.PhoneLast10 = domain.NormalizePhone(customer.Phone)
	if customer.PhoneLast10 == "" {
		return domain.ErrInvalidPhone
	}

	result := db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, name, phone, phone_last10, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (phone_last10) DO NOTHING`,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.PhoneLast10,
		customer.CreatedAt,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPhoneTaken
	}
	return nil
}

func (repositoryImpl) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("id = ?", id).Take(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (repositoryImpl) FindByPhone(ctx context.Context, db *gorm.DB, phoneLast10 string) (*domain.Customer, error) {
	phoneLast10 = strings.TrimSpace(phoneLast10)
	if phoneLast10 == "" {
		return nil, nil
	}
	var customer domain.Customer
	err := db.WithContext(ctx).Where("phone_last10 = ?", phoneLast10).Take(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}
