package ledger

import (
	"go.uber.org/fx"

	"github.com/loyaltyworks/tally/internal/ledger/repository"
	"github.com/loyaltyworks/tally/internal/ledger/service"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
