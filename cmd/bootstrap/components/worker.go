package components

import (
	"context"

	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewHoldReaper,
	),
	fx.Invoke(registerHoldReaper),
)

func NewHoldReaper(reaper commands.ReaperCommands, cfg config.Config) (*worker.HoldReaper, error) {
	return worker.NewHoldReaper(reaper, cfg.Booking.ReapInterval)
}

func registerHoldReaper(lc fx.Lifecycle, w *worker.HoldReaper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return w.Stop(ctx)
		},
	})
}
