package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/customer/domain"
	"github.com/smallbiznis/talentgate/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/smallbiznis/talentgate/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Provider paymentdomain.Provider
	Clock    clock.Clock
	Lock     *ratelimit.CustomerLock `optional:"true"`
	Metrics  *metrics.Metrics        `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	provider paymentdomain.Provider
	clock    clock.Clock
	lock     *ratelimit.CustomerLock
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.mapper"),
		genID:    p.GenID,
		repo:     p.Repo,
		provider: p.Provider,
		clock:    p.Clock,
		lock:     p.Lock,
		metrics:  p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Mapping, error) {
	userID := strings.TrimSpace(req.LocalUserID)
	if userID == "" {
		return domain.Mapping{}, domain.ErrInvalidUserID
	}

	existing, err := s.repo.FindLive(ctx, s.db, userID)
	if err != nil {
		return domain.Mapping{}, err
	}
	if existing != nil {
		s.metrics.RecordCustomerMapping("existing")
		return *existing, nil
	}

	release, acquired, err := s.lock.Acquire(ctx, userID)
	if err != nil {
		s.log.Warn("customer lock unavailable", zap.String("user_id", userID), zap.Error(err))
	}
	defer release()
	if acquired {
		// The previous holder may have finished while we waited.
		existing, err = s.repo.FindLive(ctx, s.db, userID)
		if err != nil {
			return domain.Mapping{}, err
		}
		if existing != nil {
			s.metrics.RecordCustomerMapping("existing")
			return *existing, nil
		}
	}

	email := paymentdomain.NormalizeEmail(req.Email)
	customer, err := s.provider.CreateCustomer(ctx, paymentdomain.CustomerParams{
		Email:          email,
		Name:           strings.TrimSpace(req.Name),
		Metadata:       map[string]string{paymentdomain.MetadataLocalUserID: userID},
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return domain.Mapping{}, err
	}

	mapping := domain.Mapping{
		ID:                 s.genID.Generate(),
		LocalUserID:        userID,
		Provider:           paymentdomain.ProviderStripe,
		ProviderCustomerID: customer.ID,
		Email:              email,
		CreatedAt:          s.clock.Now(),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, &mapping)
	if err != nil {
		return domain.Mapping{}, err
	}
	if inserted {
		s.metrics.RecordCustomerMapping("created")
		s.log.Info("customer mapping created",
			zap.String("user_id", userID),
			zap.String("provider_customer_id", customer.ID),
		)
		return mapping, nil
	}

	winner, err := s.repo.FindLive(ctx, s.db, userID)
	if err != nil {
		return domain.Mapping{}, err
	}
	if winner == nil {
		return domain.Mapping{}, fmt.Errorf("%w: user %s", domain.ErrMappingLost, userID)
	}
	s.metrics.RecordCustomerMapping("lost_race")
	s.log.Warn("provider customer orphaned by concurrent mapping",
		zap.String("user_id", userID),
		zap.String("orphan_customer_id", customer.ID),
		zap.String("provider_customer_id", winner.ProviderCustomerID),
	)
	return *winner, nil
}

func (s *Service) CreatePendingCustomer(ctx context.Context, req domain.PendingCustomerRequest) (string, error) {
	params := paymentdomain.CustomerParams{
		Email:          paymentdomain.NormalizeEmail(req.Email),
		Name:           strings.TrimSpace(req.Name),
		Metadata:       map[string]string{paymentdomain.MetadataPendingSignup: "true"},
		IdempotencyKey: req.IdempotencyKey,
	}
	customer, err := s.provider.CreateCustomer(ctx, params)
	if err != nil {
		return "", err
	}
	s.metrics.RecordCustomerMapping("pending")
	return customer.ID, nil
}

func (s *Service) SoftDelete(ctx context.Context, localUserID string) error {
	userID := strings.TrimSpace(localUserID)
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	deleted, err := s.repo.SoftDelete(ctx, s.db, userID, s.clock.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
