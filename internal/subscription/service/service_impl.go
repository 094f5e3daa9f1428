package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/clock"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/talentgate/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	decoder paymentdomain.EventDecoder
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Decoder paymentdomain.EventDecoder
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		decoder: p.Decoder,
	}
}

func (s *Service) EnsurePlaceholder(ctx context.Context, providerCustomerID, priceID string) (bool, error) {
	customerID := strings.TrimSpace(providerCustomerID)
	if customerID == "" {
		return false, subscriptiondomain.ErrInvalidCustomer
	}

	now := s.clock.Now()
	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, &subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		ProviderCustomerID: customerID,
		PriceID:            strings.TrimSpace(priceID),
		Status:             subscriptiondomain.StatusNotStarted,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return false, err
	}
	if inserted {
		s.log.Info("subscription placeholder seeded", zap.String("provider_customer_id", customerID))
	}
	return inserted, nil
}

func (s *Service) GetByCustomer(ctx context.Context, providerCustomerID string) (subscriptiondomain.Subscription, error) {
	customerID := strings.TrimSpace(providerCustomerID)
	if customerID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidCustomer
	}
	item, err := s.repo.FindByCustomer(ctx, s.db, customerID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if item == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) SyncFromEvent(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error {
	sub, err := s.decoder.DecodeSubscription(event.Object)
	if err != nil {
		return fmt.Errorf("decode subscription %s: %w", event.ID, err)
	}

	status := subscriptiondomain.SubscriptionStatus(sub.Status)
	if event.Type == "customer.subscription.deleted" {
		status = subscriptiondomain.StatusCanceled
	}

	now := s.clock.Now()
	eventAt := event.Created.UTC().Truncate(time.Second)
	if event.Created.IsZero() {
		eventAt = now.UTC().Truncate(time.Second)
	}
	updated, err := s.repo.UpdateFromProvider(ctx, tx, subscriptiondomain.ProviderUpdate{
		ProviderCustomerID:     sub.CustomerID,
		ProviderSubscriptionID: sub.ID,
		PriceID:                sub.PriceID,
		Status:                 status,
		EventAt:                eventAt,
		At:                     now,
	})
	if err != nil {
		return err
	}
	if !updated {
		providerSubID := sub.ID
		inserted, err := s.repo.InsertIfAbsent(ctx, tx, &subscriptiondomain.Subscription{
			ID:                     s.genID.Generate(),
			ProviderCustomerID:     sub.CustomerID,
			PriceID:                sub.PriceID,
			Status:                 status,
			ProviderSubscriptionID: &providerSubID,
			CreatedAt:              now,
			UpdatedAt:              now,
			LastEventAt:            &eventAt,
		})
		if err != nil {
			return err
		}
		if !inserted {
			s.log.Info("stale subscription event ignored",
				zap.String("event_id", event.ID),
				zap.String("provider_customer_id", sub.CustomerID),
				zap.Time("event_created", eventAt),
			)
			return nil
		}
	}

	s.log.Info("subscription synced",
		zap.String("event_id", event.ID),
		zap.String("provider_customer_id", sub.CustomerID),
		zap.String("status", string(status)),
	)
	return nil
}
