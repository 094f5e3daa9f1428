// Package paymenttest provides an in-memory payment provider for tests.
package paymenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Provider records every call and serves sessions it created or was seeded with.
type Provider struct {
	mu        sync.Mutex
	seq       int
	customers []paymentdomain.CustomerParams
	sessions  map[string]*paymentdomain.Session
	created   []paymentdomain.SessionParams

	// Err, when set, fails every call.
	Err error
}

func NewProvider() *Provider {
	return &Provider{sessions: map[string]*paymentdomain.Session{}}
}

func (p *Provider) CreateCustomer(ctx context.Context, params paymentdomain.CustomerParams) (*paymentdomain.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	p.seq++
	p.customers = append(p.customers, params)
	return &paymentdomain.Customer{ID: fmt.Sprintf("cus_test_%d", p.seq), Email: params.Email}, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, params paymentdomain.SessionParams) (*paymentdomain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	p.seq++
	id := fmt.Sprintf("cs_test_%d", p.seq)
	session := &paymentdomain.Session{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		Mode:          string(params.Mode),
		PaymentStatus: "unpaid",
		Metadata:      cloneMetadata(params.Metadata),
		CustomerID:    params.CustomerID,
		CustomerEmail: params.CustomerEmail,
	}
	p.sessions[id] = session
	p.created = append(p.created, params)
	copied := *session
	return &copied, nil
}

func (p *Provider) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*paymentdomain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, paymentdomain.ErrSessionNotFound
	}
	copied := *session
	copied.Metadata = cloneMetadata(session.Metadata)
	return &copied, nil
}

// Pay marks a session paid as the hosted checkout would.
func (p *Provider) Pay(sessionID string, amount int64, currency, detailsEmail string) *paymentdomain.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok := p.sessions[sessionID]
	if !ok {
		session = &paymentdomain.Session{ID: sessionID, Mode: string(paymentdomain.ModePayment), Metadata: map[string]string{}}
		p.sessions[sessionID] = session
	}
	session.PaymentStatus = paymentdomain.PaymentStatusPaid
	session.AmountTotal = amount
	session.Currency = strings.ToLower(currency)
	session.CustomerDetailsEmail = detailsEmail
	copied := *session
	copied.Metadata = cloneMetadata(session.Metadata)
	return &copied
}

// Seed stores a session as-is.
func (p *Provider) Seed(session paymentdomain.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := session
	copied.Metadata = cloneMetadata(session.Metadata)
	p.sessions[session.ID] = &copied
}

func (p *Provider) Customers() []paymentdomain.CustomerParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]paymentdomain.CustomerParams(nil), p.customers...)
}

func (p *Provider) CreatedSessions() []paymentdomain.SessionParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]paymentdomain.SessionParams(nil), p.created...)
}

// CheckoutCompletedPayload renders a checkout.session.completed event body
// shaped like a Stripe delivery.
func CheckoutCompletedPayload(eventID string, session paymentdomain.Session) []byte {
	object := map[string]any{
		"id":             session.ID,
		"object":         "checkout.session",
		"mode":           session.Mode,
		"payment_status": session.PaymentStatus,
		"amount_total":   session.AmountTotal,
		"currency":       session.Currency,
		"metadata":       cloneMetadata(session.Metadata),
	}
	if session.CustomerID != "" {
		object["customer"] = session.CustomerID
	}
	if session.PaymentIntentID != "" {
		object["payment_intent"] = session.PaymentIntentID
	}
	if session.CustomerEmail != "" {
		object["customer_email"] = session.CustomerEmail
	}
	if session.CustomerDetailsEmail != "" {
		object["customer_details"] = map[string]any{"email": session.CustomerDetailsEmail}
	}
	return EventPayload(eventID, "checkout.session.completed", object)
}

func EventPayload(eventID, eventType string, object any) []byte {
	return EventPayloadAt(eventID, eventType, time.Now(), object)
}

// EventPayloadAt builds an event envelope with a fixed creation time.
func EventPayloadAt(eventID, eventType string, created time.Time, object any) []byte {
	body, err := json.Marshal(map[string]any{
		"id":      eventID,
		"object":  "event",
		"type":    eventType,
		"created": created.Unix(),
		"data":    map[string]any{"object": object},
	})
	if err != nil {
		panic(err)
	}
	return body
}

// Sign returns a Stripe-Signature header for payload.
func Sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func cloneMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
