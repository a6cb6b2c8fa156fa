package customer

import (
	"go.uber.org/fx"

	"github.com/loyaltyworks/tally/internal/customer/repository"
)

var Module = fx.Module("customer.repository",
	fx.Provide(repository.Provide),
)
