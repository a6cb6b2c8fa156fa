// Package domain holds the customer profiles POS sales are attributed to.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is the minimal profile needed for purchase attribution.
type Customer struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Phone string       `gorm:"type:text;not null" json:"phone"`
	// PhoneLast10 is the normalized lookup key; unique across profiles.
	PhoneLast10 string    `gorm:"type:text;not null;unique" json:"-"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// NormalizePhone reduces a phone number to its last 10 digits, the form
// both sides of the POS attribution match on. Returns "" when the input
// carries no digits.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}
