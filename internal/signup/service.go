package signup

import (
	"context"

	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Stores   Stores
	Verifier domain.SessionVerifier
	Backend  domain.IdentityBackend
	Pricing  *config.PricingHolder
}

// Service runs the pending-signup flow per browser tab.
type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	stores   Stores
	verifier domain.SessionVerifier
	backend  domain.IdentityBackend
	pricing  *config.PricingHolder
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log,
		clock:    p.Clock,
		stores:   p.Stores,
		verifier: p.Verifier,
		backend:  p.Backend,
		pricing:  p.Pricing,
	}
}

func (s *Service) Stage(ctx context.Context, tabID string, data domain.PendingSignupData) error {
	store, err := s.stores.ForTab(tabID)
	if err != nil {
		return err
	}
	return Stage(ctx, store, data)
}

func (s *Service) Complete(ctx context.Context, tabID, sessionID string) (domain.Outcome, error) {
	store, err := s.stores.ForTab(tabID)
	if err != nil {
		return domain.Outcome{}, err
	}
	return s.flow(store).Complete(ctx, sessionID), nil
}

func (s *Service) flow(store domain.Store) *Flow {
	return NewFlow(FlowParams{
		Log:      s.log,
		Clock:    s.clock,
		Store:    store,
		Verifier: s.verifier,
		Backend:  s.backend,
		Pricing:  s.pricing,
	})
}
