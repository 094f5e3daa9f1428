package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const ProviderStripe = "stripe"

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

const PaymentStatusPaid = "paid"

type CustomerParams struct {
	Email          string
	Name           string
	Metadata       map[string]string
	IdempotencyKey string
}

type Customer struct {
	ID    string
	Email string
}

type SessionParams struct {
	PriceID        string
	Mode           Mode
	CustomerID     string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID                   string
	URL                  string
	Mode                 string
	PaymentStatus        string
	AmountTotal          int64
	Currency             string
	Metadata             map[string]string
	CustomerID           string
	PaymentIntentID      string
	CustomerEmail        string
	CustomerDetailsEmail string
}

// ResolvedEmail picks the metadata email, then the captured customer details
// email, then the session-level customer email. The result is lower-cased.
func (s Session) ResolvedEmail() string {
	for _, candidate := range []string{
		s.Metadata[MetadataEmail],
		s.CustomerDetailsEmail,
		s.CustomerEmail,
	} {
		if email := NormalizeEmail(candidate); email != "" {
			return email
		}
	}
	return ""
}

func (s Session) IsPaidOneTime() bool {
	return s.PaymentStatus == PaymentStatusPaid && s.Mode == string(ModePayment)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	PriceID    string
}

// Event is the verified webhook envelope.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
	Payload []byte
}

type Provider interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*Session, error)
}

// WebhookVerifier authenticates a raw webhook body. It performs no parsing
// of the body beyond what the signature scheme requires.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) error
}

type EventDecoder interface {
	DecodeEvent(payload []byte) (*Event, error)
	DecodeCheckoutSession(object json.RawMessage) (*Session, error)
	DecodeSubscription(object json.RawMessage) (*Subscription, error)
}
