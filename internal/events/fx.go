package events

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(NewLogSink),
	fx.Provide(NewDispatcher),
	fx.Invoke(registerDispatcherHooks),
)

type dispatcherHookParams struct {
	fx.In

	LC         fx.Lifecycle
	Dispatcher *Dispatcher
}

func registerDispatcherHooks(p dispatcherHookParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				p.Dispatcher.RunForever(ctx)
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
