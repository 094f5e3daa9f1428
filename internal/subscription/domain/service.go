package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"gorm.io/gorm"
)

type Service interface {
	// EnsurePlaceholder seeds a not_started row for a customer without one.
	EnsurePlaceholder(ctx context.Context, providerCustomerID, priceID string) (bool, error)
	GetByCustomer(ctx context.Context, providerCustomerID string) (Subscription, error)
	// SyncFromEvent applies a customer.subscription.* event.
	SyncFromEvent(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrNotFound        = errors.New("not_found")
)
