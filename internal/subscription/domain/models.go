package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	// StatusNotStarted marks a subscription whose checkout has been created
	// but not yet confirmed by the provider.
	StatusNotStarted SubscriptionStatus = "not_started"
	StatusActive     SubscriptionStatus = "active"
	StatusCanceled   SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID                     snowflake.ID       `json:"id"`
	ProviderCustomerID     string             `json:"provider_customer_id"`
	PriceID                string             `json:"price_id"`
	Status                 SubscriptionStatus `json:"status"`
	ProviderSubscriptionID *string            `json:"provider_subscription_id,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	// LastEventAt is the creation time of the newest provider event applied.
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}
