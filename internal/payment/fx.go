package payment

import (
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.provider",
	fx.Provide(
		newStripeClient,
		newStripeWebhooks,
		func(c *stripe.Client) paymentdomain.Provider { return c },
		func(w *stripe.Webhooks) paymentdomain.WebhookVerifier { return w },
		func(w *stripe.Webhooks) paymentdomain.EventDecoder { return w },
	),
)

func newStripeClient(cfg config.Config) (*stripe.Client, error) {
	return stripe.NewClient(cfg.Stripe.SecretKey)
}

func newStripeWebhooks(cfg config.Config) (*stripe.Webhooks, error) {
	return stripe.NewWebhooks(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
}
