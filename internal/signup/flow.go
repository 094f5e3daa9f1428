package signup

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
	"go.uber.org/zap"
)

// Flow completes one staged signup after the checkout success redirect.
type Flow struct {
	log      *zap.Logger
	clock    clock.Clock
	store    domain.Store
	verifier domain.SessionVerifier
	backend  domain.IdentityBackend
	pricing  *config.PricingHolder
}

type FlowParams struct {
	Log      *zap.Logger
	Clock    clock.Clock
	Store    domain.Store
	Verifier domain.SessionVerifier
	Backend  domain.IdentityBackend
	Pricing  *config.PricingHolder
}

func NewFlow(p FlowParams) *Flow {
	pricing := p.Pricing
	if pricing == nil {
		pricing = config.NewStaticPricingHolder(config.DefaultPricingConfig())
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Flow{
		log:      p.Log.Named("signup.flow"),
		clock:    clk,
		store:    p.Store,
		verifier: p.Verifier,
		backend:  p.Backend,
		pricing:  pricing,
	}
}

// Complete re-verifies the session server side before creating the account.
// The pending data is cleared whatever the outcome.
func (f *Flow) Complete(ctx context.Context, sessionID string) (out domain.Outcome) {
	out = domain.Outcome{State: domain.StateProcessing}
	defer func() {
		if err := f.store.Clear(context.WithoutCancel(ctx)); err != nil {
			f.log.Warn("failed to clear pending signup", zap.Error(err))
		}
	}()

	pending, err := f.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoPendingSignup) {
			f.log.Warn("failed to load pending signup", zap.Error(err))
		}
		return f.fail(out, domain.ErrNoPendingSignup)
	}
	data, err := pending.Take()
	if err != nil {
		return f.fail(out, err)
	}

	if strings.TrimSpace(sessionID) == "" {
		return f.fail(out, domain.ErrPaymentNotConfirmed)
	}

	cfg := f.pricing.Get()
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.VerifyTimeout)
	verification, err := f.verifier.VerifySession(verifyCtx, sessionID)
	cancel()
	if err != nil {
		f.log.Info("session verification failed", zap.String("session_id", sessionID), zap.Error(err))
		return f.fail(out, errors.Join(domain.ErrPaymentNotConfirmed, err))
	}
	if !verification.OK {
		return f.fail(out, domain.ErrPaymentNotConfirmed)
	}

	account, err := f.backend.SignUp(ctx, data)
	if err != nil {
		f.log.Info("account creation failed", zap.String("session_id", sessionID), zap.Error(err))
		return f.fail(out, &domain.AccountCreationError{Err: err})
	}

	out.State = domain.StateSuccess
	out.UserID = account.UserID
	out.Token = account.Token
	out.RedirectPath = OnboardingPath(cfg.OnboardingPaths, data.UserType)
	out.RedirectAfter = cfg.RedirectDelay
	f.log.Info("signup completed", zap.String("session_id", sessionID), zap.String("user_id", account.UserID))
	return out
}

// Redirect waits the display delay and then navigates to the onboarding path.
func (f *Flow) Redirect(ctx context.Context, out domain.Outcome, nav domain.Navigator) error {
	if out.State != domain.StateSuccess || out.RedirectPath == "" {
		return domain.ErrNotRedirectable
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clock.After(out.RedirectAfter):
	}
	nav.Navigate(out.RedirectPath)
	return nil
}

func (f *Flow) fail(out domain.Outcome, err error) domain.Outcome {
	out.State = domain.StateError
	out.Err = err
	return out
}

// Stage saves signup data for the tab before it is sent to checkout.
func Stage(ctx context.Context, store domain.Store, data domain.PendingSignupData) error {
	data.Email = strings.ToLower(strings.TrimSpace(data.Email))
	data.UserType = strings.TrimSpace(data.UserType)
	return store.Save(ctx, data)
}
