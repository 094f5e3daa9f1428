package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	stripego "github.com/stripe/stripe-go/v82"
)

// Client talks to the Stripe API through stripe-go.
type Client struct {
	api *stripego.Client
}

func NewClient(secretKey string, opts ...stripego.ClientOption) (*Client, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, paymentdomain.ErrNotConfigured
	}
	return &Client{api: stripego.NewClient(secretKey, opts...)}, nil
}

func (c *Client) CreateCustomer(ctx context.Context, params paymentdomain.CustomerParams) (*paymentdomain.Customer, error) {
	req := &stripego.CustomerCreateParams{
		Metadata: copyMetadata(params.Metadata),
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		req.Email = stripego.String(email)
	}
	if name := strings.TrimSpace(params.Name); name != "" {
		req.Name = stripego.String(name)
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	customer, err := c.api.V1Customers.Create(ctx, req)
	if err != nil {
		return nil, wrapError("create customer", err)
	}
	return &paymentdomain.Customer{ID: customer.ID, Email: customer.Email}, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params paymentdomain.SessionParams) (*paymentdomain.Session, error) {
	req := &stripego.CheckoutSessionCreateParams{
		Mode:       stripego.String(string(params.Mode)),
		SuccessURL: stripego.String(params.SuccessURL),
		CancelURL:  stripego.String(params.CancelURL),
		Metadata:   copyMetadata(params.Metadata),
		LineItems: []*stripego.CheckoutSessionCreateLineItemParams{{
			Price:    stripego.String(params.PriceID),
			Quantity: stripego.Int64(1),
		}},
	}
	switch {
	case params.CustomerID != "":
		req.Customer = stripego.String(params.CustomerID)
	case params.CustomerEmail != "":
		req.CustomerEmail = stripego.String(params.CustomerEmail)
	}
	if params.Mode == paymentdomain.ModePayment {
		req.PaymentIntentData = &stripego.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: copyMetadata(params.Metadata),
		}
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	session, err := c.api.V1CheckoutSessions.Create(ctx, req)
	if err != nil {
		return nil, wrapError("create checkout session", err)
	}
	return toSession(session), nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*paymentdomain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, paymentdomain.ErrSessionNotFound
	}

	req := &stripego.CheckoutSessionRetrieveParams{}
	req.AddExpand("payment_intent")

	session, err := c.api.V1CheckoutSessions.Retrieve(ctx, sessionID, req)
	if err != nil {
		return nil, wrapError("retrieve checkout session", err)
	}
	return toSession(session), nil
}

func toSession(session *stripego.CheckoutSession) *paymentdomain.Session {
	if session == nil {
		return nil
	}
	out := &paymentdomain.Session{
		ID:            session.ID,
		URL:           session.URL,
		Mode:          string(session.Mode),
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      strings.ToLower(string(session.Currency)),
		Metadata:      copyMetadata(session.Metadata),
		CustomerEmail: session.CustomerEmail,
	}
	if session.Customer != nil {
		out.CustomerID = session.Customer.ID
	}
	if session.PaymentIntent != nil {
		out.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil {
		out.CustomerDetailsEmail = session.CustomerDetails.Email
	}
	return out
}

func wrapError(op string, err error) error {
	var apiErr *stripego.Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("stripe %s: %w", op, paymentdomain.ErrSessionNotFound)
	}
	return fmt.Errorf("stripe %s: %w: %v", op, paymentdomain.ErrProviderUnavailable, err)
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
