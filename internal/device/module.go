package device

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("device",
	fx.Provide(NewController),
	fx.Invoke(func(lc fx.Lifecycle, c *Controller) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				c.Close()
				return nil
			},
		})
	}),
)
