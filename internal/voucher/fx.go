package voucher

import (
	"go.uber.org/fx"

	"github.com/loyaltyworks/tally/internal/voucher/service"
)

var Module = fx.Module("voucher.service",
	fx.Provide(service.NewService),
)
