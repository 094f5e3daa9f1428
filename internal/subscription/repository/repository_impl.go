package repository

import (
	"context"

	subscriptiondomain "github.com/smallbiznis/talentgate/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, provider_customer_id, price_id, status, provider_subscription_id, created_at, updated_at, last_event_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_customer_id) DO NOTHING`,
		subscription.ID,
		subscription.ProviderCustomerID,
		subscription.PriceID,
		subscription.Status,
		subscription.ProviderSubscriptionID,
		subscription.CreatedAt,
		subscription.UpdatedAt,
		subscription.LastEventAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByCustomer(ctx context.Context, db *gorm.DB, providerCustomerID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider_customer_id, price_id, status, provider_subscription_id, created_at, updated_at, last_event_at
		 FROM subscriptions WHERE provider_customer_id = ?`,
		providerCustomerID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) UpdateFromProvider(ctx context.Context, db *gorm.DB, u subscriptiondomain.ProviderUpdate) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, provider_subscription_id = ?,
		     price_id = CASE WHEN ? = '' THEN price_id ELSE ? END,
		     updated_at = ?, last_event_at = ?
		 WHERE provider_customer_id = ?
		   AND (last_event_at IS NULL
		        OR last_event_at < ?
		        OR (last_event_at = ? AND status <> ?))`,
		u.Status,
		u.ProviderSubscriptionID,
		u.PriceID,
		u.PriceID,
		u.At,
		u.EventAt,
		u.ProviderCustomerID,
		u.EventAt,
		u.EventAt,
		subscriptiondomain.StatusCanceled,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
