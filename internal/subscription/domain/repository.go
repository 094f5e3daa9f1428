package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertIfAbsent(ctx context.Context, db *gorm.DB, subscription *Subscription) (bool, error)
	FindByCustomer(ctx context.Context, db *gorm.DB, providerCustomerID string) (*Subscription, error)
	// UpdateFromProvider applies an event unless a newer one was already
	// applied. A canceled row only moves on a strictly newer event.
	UpdateFromProvider(ctx context.Context, db *gorm.DB, update ProviderUpdate) (bool, error)
}

type ProviderUpdate struct {
	ProviderCustomerID     string
	ProviderSubscriptionID string
	PriceID                string
	Status                 SubscriptionStatus
	EventAt                time.Time
	At                     time.Time
}
