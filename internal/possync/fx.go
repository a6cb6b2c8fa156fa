package possync

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/loyaltyworks/tally/internal/config"
	"github.com/loyaltyworks/tally/internal/observability/metrics"
)

// Module wires the reconciliation worker. The polling loop only starts
// when sync is enabled; the worker itself is always available so the
// admin API can trigger manual runs.
var Module = fx.Module("possync",
	fx.Provide(NewConfig),
	fx.Provide(func(cfg config.Config) *metrics.SyncMetrics {
		return metrics.SyncWithConfig(metrics.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		})
	}),
	fx.Provide(NewWorker),
	fx.Invoke(registerHooks),
)

func NewConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Sync.Enabled
	if cfg.Sync.PollInterval > 0 {
		c.PollInterval = cfg.Sync.PollInterval
	}
	if cfg.POS.PageSize > 0 {
		c.PageSize = cfg.POS.PageSize
	}
	return c
}

type hookParams struct {
	fx.In

	LC     fx.Lifecycle
	Log    *zap.Logger
	Worker *Worker
	Config Config
}

func registerHooks(p hookParams) {
	if !p.Config.Enabled {
		p.Log.Info("reconciliation sync disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				p.Worker.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
