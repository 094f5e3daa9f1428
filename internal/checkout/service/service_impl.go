package service

import (
	"context"

	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/talentgate/internal/customer/domain"
	"github.com/smallbiznis/talentgate/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/talentgate/internal/subscription/domain"
	"github.com/smallbiznis/talentgate/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Customers     customerdomain.Service
	Subscriptions subscriptiondomain.Service
	Provider      paymentdomain.Provider
	Metrics       *metrics.Metrics `optional:"true"`
}

// Factory validates a request and hands it to the strategy owning its category.
type Factory struct {
	log           *zap.Logger
	metrics       *metrics.Metrics
	verification  checkoutdomain.Strategy
	authenticated checkoutdomain.Strategy
}

func NewFactory(p Params) checkoutdomain.Service {
	return &Factory{
		log:           p.Log.Named("checkout.factory"),
		metrics:       p.Metrics,
		verification:  NewAnonymousVerificationCheckout(p.Customers, p.Provider),
		authenticated: NewAuthenticatedCheckout(p.Customers, p.Subscriptions, p.Provider),
	}
}

func (f *Factory) Create(ctx context.Context, caller checkoutdomain.Caller, req checkoutdomain.Request) (checkoutdomain.Session, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return checkoutdomain.Session{}, err
	}

	strategy := f.strategyFor(req)
	ctx, attemptID := correlation.EnsureCorrelationID(ctx)
	log := f.log.With(
		zap.String("strategy", strategy.Name()),
		zap.String("category", req.Category),
		zap.String("attempt_id", attemptID),
	)

	session, err := strategy.Create(ctx, caller, req)
	f.metrics.RecordCheckout(strategy.Name(), err)
	if err != nil {
		log.Warn("checkout session not created", zap.Error(err))
		return checkoutdomain.Session{}, err
	}
	session.Strategy = strategy.Name()

	log.Info("checkout session created", zap.String("session_id", session.SessionID))
	return session, nil
}

func (f *Factory) strategyFor(req checkoutdomain.Request) checkoutdomain.Strategy {
	if req.IsVerification() {
		return f.verification
	}
	return f.authenticated
}
