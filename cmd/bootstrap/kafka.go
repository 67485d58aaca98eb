package bootstrap

import (
	"context"

	"stayhub/internal/infra/events"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/commands"

	"go.uber.org/fx"
)

var KafkaModule = fx.Module("kafka",
	fx.Provide(
		NewKafkaPublisher,
		fx.Annotate(
			func(p *events.KafkaPublisher) *events.KafkaPublisher { return p },
			fx.As(new(commands.EventPublisher)),
		),
	),
)

func NewKafkaPublisher(lc fx.Lifecycle, cfg config.Config) (*events.KafkaPublisher, error) {
	publisher, cleanup, err := events.NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return publisher, nil
}
