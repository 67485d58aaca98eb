package bootstrap

import (
	"stayhub/internal/infra/processor"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/commands"

	"go.uber.org/fx"
)

var StripeModule = fx.Module("stripe",
	fx.Provide(
		NewStripeProcessor,
		fx.Annotate(
			func(p *processor.StripeProcessor) *processor.StripeProcessor { return p },
			fx.As(new(commands.ProcessorClient)),
		),
	),
)

func NewStripeProcessor(cfg config.Config) *processor.StripeProcessor {
	return processor.NewStripeProcessor(cfg.Stripe)
}
