package program

import (
	"go.uber.org/fx"

	"github.com/loyaltyworks/tally/internal/program/service"
)

var Module = fx.Module("program.service",
	fx.Provide(service.NewService),
)
