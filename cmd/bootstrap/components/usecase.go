package components

import (
	"stayhub/internal/domain/booking"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	booking.NewFactory,
	func(cfg config.Config) commands.RefundRetryConfig {
		return commands.RefundRetryConfig{
			MaxAttempts: cfg.Booking.RefundMaxAttempts,
			BackoffBase: cfg.Booking.RefundBackoffBase,
		}
	},
	fx.Annotate(
		func(cfg config.Config) *commands.DefaultCancelPolicy {
			return commands.NewDefaultCancelPolicy(cfg.Booking.CancelCutoff)
		},
		fx.As(new(commands.CancelPolicy)),
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewBookingCommands,
		commands.NewReconcileCommands,
		commands.NewCancelCommands,
		NewReaperCommands,
	),
)

func NewReaperCommands(
	uow shared.UnitOfWork,
	processor commands.ProcessorClient,
	publisher commands.EventPublisher,
	cfg config.Config,
	clk clock.Clock,
) commands.ReaperCommands {
	return commands.NewReaperCommands(
		uow, processor, publisher,
		cfg.Booking.HoldTTL,
		int32(cfg.Booking.ReapBatchSize),
		clk,
	)
}

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)
