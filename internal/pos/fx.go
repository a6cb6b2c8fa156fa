package pos

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/loyaltyworks/tally/internal/cache"
	"github.com/loyaltyworks/tally/internal/config"
)

var Module = fx.Module("pos.client",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Client {
		ttl := cfg.POS.TokenTTL
		if ttl <= 0 {
			ttl = 20 * time.Minute
		}
		tokens := cache.New[string, string](ttl)
		return NewHTTPClient(cfg.POS, tokens, log)
	}),
)
