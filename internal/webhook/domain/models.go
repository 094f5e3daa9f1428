package domain

import (
	"context"
	"errors"
	"time"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is the durable record of one delivered webhook. Its event id is the
// deduplication key.
type Event struct {
	EventID     string         `json:"event_id"`
	Provider    string         `json:"provider"`
	EventType   string         `json:"event_type"`
	ReceivedAt  time.Time      `json:"received_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	Payload     datatypes.JSON `json:"payload"`
}

// Result describes how an accepted delivery was handled.
type Result struct {
	EventID   string
	EventType string
	Duplicate bool
	Handled   bool
}

// Handler runs a side effect for one event inside the ingest transaction.
type Handler interface {
	Handle(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error
}

type HandlerFunc func(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error {
	return f(ctx, tx, event)
}

// Route binds a handler to the event types it consumes.
type Route struct {
	EventTypes []string
	Handler    Handler
}

type Repository interface {
	// Insert reports false when the event id is already recorded.
	Insert(ctx context.Context, db *gorm.DB, event *Event) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, eventID string, at time.Time) error
}

type Gateway interface {
	Ingest(ctx context.Context, payload []byte, signatureHeader string) (Result, error)
}

const (
	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCustomerSubscriptionCreated          = "customer.subscription.created"
	EventCustomerSubscriptionUpdated          = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted          = "customer.subscription.deleted"
)

var ErrTransientPersistence = errors.New("transient_persistence_failure")
