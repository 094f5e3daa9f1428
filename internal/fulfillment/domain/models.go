package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order is the immutable receipt of a completed checkout session.
type Order struct {
	ID                 snowflake.ID      `json:"id"`
	SessionID          string            `json:"session_id"`
	PaymentIntentID    *string           `json:"payment_intent_id,omitempty"`
	ProviderCustomerID *string           `json:"provider_customer_id,omitempty"`
	Email              string            `json:"email"`
	AmountTotal        int64             `json:"amount_total"`
	Currency           string            `json:"currency"`
	PaymentStatus      string            `json:"payment_status"`
	Purpose            string            `json:"purpose"`
	Metadata           datatypes.JSONMap `json:"metadata"`
	Payload            datatypes.JSON    `json:"-"`
	CreatedAt          time.Time         `json:"created_at"`
}

type VerificationEmail struct {
	Email         string     `json:"email"`
	IsVerified    bool       `json:"is_verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	LastSessionID string     `json:"last_session_id"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Repository interface {
	// InsertOrder reports false when the session already has an order.
	InsertOrder(ctx context.Context, db *gorm.DB, order *Order) (bool, error)
	UpsertVerificationEmail(ctx context.Context, db *gorm.DB, v *VerificationEmail) error
	FindVerificationEmail(ctx context.Context, db *gorm.DB, email string) (*VerificationEmail, error)
	IsVerified(ctx context.Context, db *gorm.DB, email string) (bool, error)
}

// Amount is a price in minor units.
type Amount struct {
	Value    int64
	Currency string
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Currency)
}

// PriceMismatchError withholds verification for an under- or over-priced
// payment. The order is still recorded.
type PriceMismatchError struct {
	Expected Amount
	Got      Amount
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("verification price mismatch: expected %s, got %s", e.Expected, e.Got)
}

var (
	ErrMissingEmail = errors.New("verification_email_missing")
	ErrNotFound     = errors.New("not_found")
)
