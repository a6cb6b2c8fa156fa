// Package possync reconciles the internal program state against the
// external point-of-sale system. It is safe to run concurrently with
// itself and with user-initiated redemption: every write funnels through
// idempotent ledger primitives or conditional status updates.
package possync

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the internal sale lifecycle vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

// statusRank orders the forward-only lifecycle. Canceled is an absorbing
// terminal rank: any observation of it wins.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusShipped:   3,
	StatusDelivered: 4,
	StatusCanceled:  99,
}

// Rank returns the non-regression ordering for s; unknown states rank as
// pending.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return statusRank[StatusPending]
}

// Advance applies the non-regression rule: the persisted state only moves
// forward. An out-of-order observation ranking below what is already
// stored loses; canceled always wins.
func Advance(current, observed Status) Status {
	if observed == StatusCanceled {
		return StatusCanceled
	}
	if current == StatusCanceled {
		return StatusCanceled
	}
	if observed.Rank() > current.Rank() {
		return observed
	}
	return current
}

// externalStatusTable translates the POS provider's vocabulary. Unknown
// states deliberately fall back to pending rather than failing: the
// provider's schema is not ours to control.
var externalStatusTable = map[string]Status{
	"pending":    StatusPending,
	"new":        StatusPending,
	"accepted":   StatusPending,
	"in course":  StatusPreparing,
	"in_course":  StatusPreparing,
	"preparing":  StatusPreparing,
	"prepared":   StatusReady,
	"ready":      StatusReady,
	"on route":   StatusShipped,
	"on_route":   StatusShipped,
	"shipped":    StatusShipped,
	"closed":     StatusDelivered,
	"delivered":  StatusDelivered,
	"completed":  StatusDelivered,
	"canceled":   StatusCanceled,
	"cancelled":  StatusCanceled,
	"voided":     StatusCanceled,
}

// MapExternalStatus translates one provider state into the internal
// vocabulary.
func MapExternalStatus(external string) Status {
	if status, ok := externalStatusTable[external]; ok {
		return status
	}
	return StatusPending
}

// Sale types in the internal vocabulary. Only deliveries earn stamps.
const (
	SaleTypeDelivery = "delivery"
	SaleTypePickup   = "pickup"
	SaleTypeDineIn   = "dine_in"
)

var saleTypeTable = map[string]string{
	"delivery":  SaleTypeDelivery,
	"shipping":  SaleTypeDelivery,
	"pickup":    SaleTypePickup,
	"takeaway":  SaleTypePickup,
	"dine_in":   SaleTypeDineIn,
	"local":     SaleTypeDineIn,
	"in_store":  SaleTypeDineIn,
}

// MapSaleType translates the provider sale type; unknown types count as
// dine-in, which never earns stamps.
func MapSaleType(external string) string {
	if t, ok := saleTypeTable[external]; ok {
		return t
	}
	return SaleTypeDineIn
}

// SaleRecord is the persisted view of one external sale, carrying the
// non-regressing internal lifecycle state.
type SaleRecord struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	ExternalID  string        `gorm:"type:text;not null;unique"`
	UserID      *snowflake.ID `gorm:""`
	SaleType    string        `gorm:"type:text;not null"`
	Status      Status        `gorm:"type:text;not null"`
	TotalAmount int64         `gorm:"not null"`
	CreatedAt   time.Time     `gorm:"not null"`
	UpdatedAt   time.Time     `gorm:"not null"`
}

// TableName sets the database table name.
func (SaleRecord) TableName() string { return "sales" }
