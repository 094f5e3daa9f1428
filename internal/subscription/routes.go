package subscription

import (
	subscriptiondomain "github.com/smallbiznis/talentgate/internal/subscription/domain"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
)

func NewWebhookRoute(svc subscriptiondomain.Service) webhookdomain.Route {
	return webhookdomain.Route{
		EventTypes: []string{
			webhookdomain.EventCustomerSubscriptionCreated,
			webhookdomain.EventCustomerSubscriptionUpdated,
			webhookdomain.EventCustomerSubscriptionDeleted,
		},
		Handler: webhookdomain.HandlerFunc(svc.SyncFromEvent),
	}
}
