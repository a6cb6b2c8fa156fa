// Package pos consumes the external point-of-sale provider. The provider
// is eventually consistent and rate-limited; callers must expect re-polled
// data and treat ErrRateLimited as a signal to stop the current batch.
package pos

import (
	"context"
	"errors"
	"time"
)

// RawSale is the narrow internal representation of one external sale,
// parsed at the boundary. Status carries the provider's vocabulary
// untranslated; mapping happens in the sync layer.
type RawSale struct {
	ID            string
	Type          string
	Status        string
	CustomerName  string
	CustomerPhone string
	// TotalAmount is the provider-computed total in the smallest
	// currency unit.
	TotalAmount int64
	CreatedAt   time.Time
}

// Client lists recent sales from the POS, sorted by creation time.
type Client interface {
	ListRecentSales(ctx context.Context, since time.Time, limit int) ([]RawSale, error)
}

var (
	// ErrRateLimited maps the provider's HTTP 429. It aborts the
	// remaining batch; back-off is the next scheduled run.
	ErrRateLimited = errors.New("pos_rate_limited")

	ErrUnauthorized = errors.New("pos_unauthorized")
)
