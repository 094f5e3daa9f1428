package fulfillment

import (
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	"github.com/smallbiznis/talentgate/internal/fulfillment/service"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
)

func NewWebhookRoute(r *service.Reconciler) webhookdomain.Route {
	return webhookdomain.Route{
		EventTypes: []string{
			webhookdomain.EventCheckoutSessionCompleted,
			webhookdomain.EventCheckoutSessionAsyncPaymentSucceeded,
		},
		Handler: webhookdomain.HandlerFunc(r.HandleCheckoutCompleted),
	}
}

// NewVerificationRecorder lets session verification write verified emails
// with the reconciler's price and purpose rules.
func NewVerificationRecorder(r *service.Reconciler) checkoutdomain.VerificationRecorder {
	return r
}
