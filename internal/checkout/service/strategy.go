package service

import (
	"context"

	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/talentgate/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/talentgate/internal/subscription/domain"
	"github.com/smallbiznis/talentgate/pkg/telemetry/correlation"
)

// AuthenticatedCheckout serves every category except verification. It
// requires a caller identity before touching the provider.
type AuthenticatedCheckout struct {
	customers     customerdomain.Service
	subscriptions subscriptiondomain.Service
	provider      paymentdomain.Provider
}

func NewAuthenticatedCheckout(customers customerdomain.Service, subscriptions subscriptiondomain.Service, provider paymentdomain.Provider) *AuthenticatedCheckout {
	return &AuthenticatedCheckout{customers: customers, subscriptions: subscriptions, provider: provider}
}

func (s *AuthenticatedCheckout) Name() string { return "authenticated" }

func (s *AuthenticatedCheckout) Create(ctx context.Context, caller checkoutdomain.Caller, req checkoutdomain.Request) (checkoutdomain.Session, error) {
	if !caller.Authenticated() {
		return checkoutdomain.Session{}, checkoutdomain.ErrAuthenticationRequired
	}
	_, attemptID := correlation.EnsureCorrelationID(ctx)

	mapping, err := s.customers.Resolve(ctx, customerdomain.ResolveRequest{
		LocalUserID:    caller.UserID,
		Email:          req.Email,
		IdempotencyKey: correlation.IdempotencyKey(attemptID, "customer"),
	})
	if err != nil {
		return checkoutdomain.Session{}, err
	}

	if req.Mode == string(paymentdomain.ModeSubscription) {
		if _, err := s.subscriptions.EnsurePlaceholder(ctx, mapping.ProviderCustomerID, req.PriceID); err != nil {
			return checkoutdomain.Session{}, err
		}
	}

	return createSession(ctx, s.provider, req, mapping.ProviderCustomerID, caller.UserID, attemptID)
}

// AnonymousVerificationCheckout serves the verification category, with or
// without a known local user.
type AnonymousVerificationCheckout struct {
	customers customerdomain.Service
	provider  paymentdomain.Provider
}

func NewAnonymousVerificationCheckout(customers customerdomain.Service, provider paymentdomain.Provider) *AnonymousVerificationCheckout {
	return &AnonymousVerificationCheckout{customers: customers, provider: provider}
}

func (s *AnonymousVerificationCheckout) Name() string { return "anonymous_verification" }

func (s *AnonymousVerificationCheckout) Create(ctx context.Context, caller checkoutdomain.Caller, req checkoutdomain.Request) (checkoutdomain.Session, error) {
	_, attemptID := correlation.EnsureCorrelationID(ctx)

	userID := req.UserID
	if caller.Authenticated() {
		userID = caller.UserID
	}

	var customerID string
	if userID != "" {
		mapping, err := s.customers.Resolve(ctx, customerdomain.ResolveRequest{
			LocalUserID:    userID,
			Email:          req.Email,
			IdempotencyKey: correlation.IdempotencyKey(attemptID, "customer"),
		})
		if err != nil {
			return checkoutdomain.Session{}, err
		}
		customerID = mapping.ProviderCustomerID
	} else {
		id, err := s.customers.CreatePendingCustomer(ctx, customerdomain.PendingCustomerRequest{
			Email:          req.Email,
			IdempotencyKey: correlation.IdempotencyKey(attemptID, "customer"),
		})
		if err != nil {
			return checkoutdomain.Session{}, err
		}
		customerID = id
	}

	return createSession(ctx, s.provider, req, customerID, userID, attemptID)
}

func createSession(ctx context.Context, provider paymentdomain.Provider, req checkoutdomain.Request, customerID, userID, attemptID string) (checkoutdomain.Session, error) {
	session, err := provider.CreateCheckoutSession(ctx, paymentdomain.SessionParams{
		PriceID:        req.PriceID,
		Mode:           paymentdomain.Mode(req.Mode),
		CustomerID:     customerID,
		CustomerEmail:  req.Email,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		Metadata:       buildMetadata(req, userID, attemptID),
		IdempotencyKey: correlation.IdempotencyKey(attemptID, "session"),
	})
	if err != nil {
		return checkoutdomain.Session{}, err
	}
	return checkoutdomain.Session{
		SessionID: session.ID,
		URL:       session.URL,
		AttemptID: attemptID,
	}, nil
}
