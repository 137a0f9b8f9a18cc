package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Start builds the fx graph for p, starts it and returns the client. stop
// runs the shutdown hooks.
func Start(ctx context.Context, p Params) (c *Client, stop func(context.Context) error, err error) {
	fxApp := fx.New(
		Module(p),
		fx.Populate(&c),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
	if err := fxApp.Err(); err != nil {
		return nil, nil, err
	}
	if err := fxApp.Start(ctx); err != nil {
		return nil, nil, err
	}
	return c, fxApp.Stop, nil
}
