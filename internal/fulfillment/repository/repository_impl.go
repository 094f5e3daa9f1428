package repository

import (
	"context"

	fulfillmentdomain "github.com/smallbiznis/talentgate/internal/fulfillment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() fulfillmentdomain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *fulfillmentdomain.Order) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, session_id, payment_intent_id, provider_customer_id, email, amount_total,
			currency, payment_status, purpose, metadata, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING`,
		order.ID,
		order.SessionID,
		order.PaymentIntentID,
		order.ProviderCustomerID,
		order.Email,
		order.AmountTotal,
		order.Currency,
		order.PaymentStatus,
		order.Purpose,
		order.Metadata,
		order.Payload,
		order.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertVerificationEmail keeps one row per email; a later session overwrites
// the earlier one.
func (r *repo) UpsertVerificationEmail(ctx context.Context, db *gorm.DB, v *fulfillmentdomain.VerificationEmail) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO verification_emails (email, is_verified, verified_at, last_session_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		     is_verified = excluded.is_verified,
		     verified_at = excluded.verified_at,
		     last_session_id = excluded.last_session_id,
		     updated_at = excluded.updated_at`,
		v.Email,
		v.IsVerified,
		v.VerifiedAt,
		v.LastSessionID,
		v.UpdatedAt,
	).Error
}

func (r *repo) FindVerificationEmail(ctx context.Context, db *gorm.DB, email string) (*fulfillmentdomain.VerificationEmail, error) {
	var v fulfillmentdomain.VerificationEmail
	err := db.WithContext(ctx).Raw(
		`SELECT email, is_verified, verified_at, last_session_id, updated_at
		 FROM verification_emails WHERE email = ?`,
		email,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.Email == "" {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) IsVerified(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	v, err := r.FindVerificationEmail(ctx, db, email)
	if err != nil || v == nil {
		return false, err
	}
	return v.IsVerified, nil
}
