package stripe

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const DefaultTolerance = 300 * time.Second

// Webhooks verifies Stripe-Signature headers and decodes event envelopes.
type Webhooks struct {
	secret    string
	tolerance time.Duration
}

func NewWebhooks(secret string, tolerance time.Duration) (*Webhooks, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, paymentdomain.ErrNotConfigured
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Webhooks{secret: secret, tolerance: tolerance}, nil
}

// Verify checks the HMAC over the raw body. The body is not parsed.
func (w *Webhooks) Verify(payload []byte, signatureHeader string) error {
	if strings.TrimSpace(signatureHeader) == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, w.secret, w.tolerance); err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (w *Webhooks) DecodeEvent(payload []byte) (*paymentdomain.Event, error) {
	var event stripego.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(string(event.Type)) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	out := &paymentdomain.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: timestamp(event.Created),
		Payload: payload,
	}
	if event.Data != nil {
		out.Object = event.Data.Raw
	}
	return out, nil
}

func (w *Webhooks) DecodeCheckoutSession(object json.RawMessage) (*paymentdomain.Session, error) {
	if len(object) == 0 {
		return nil, paymentdomain.ErrInvalidPayload
	}
	var session stripego.CheckoutSession
	if err := json.Unmarshal(object, &session); err != nil {
		return nil, errors.Join(paymentdomain.ErrInvalidPayload, err)
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return toSession(&session), nil
}

func (w *Webhooks) DecodeSubscription(object json.RawMessage) (*paymentdomain.Subscription, error) {
	if len(object) == 0 {
		return nil, paymentdomain.ErrInvalidPayload
	}
	var sub stripego.Subscription
	if err := json.Unmarshal(object, &sub); err != nil {
		return nil, errors.Join(paymentdomain.ErrInvalidPayload, err)
	}
	if strings.TrimSpace(sub.ID) == "" || sub.Customer == nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	out := &paymentdomain.Subscription{
		ID:         sub.ID,
		CustomerID: sub.Customer.ID,
		Status:     string(sub.Status),
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil {
				out.PriceID = item.Price.ID
				break
			}
		}
	}
	return out, nil
}

func timestamp(unix int64) time.Time {
	if unix == 0 {
		return time.Now().UTC()
	}
	return time.Unix(unix, 0).UTC()
}
