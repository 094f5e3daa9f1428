package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GatewayParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       webhookdomain.Repository
	Verifier   paymentdomain.WebhookVerifier
	Decoder    paymentdomain.EventDecoder
	Dispatcher *Dispatcher
	Metrics    *metrics.Metrics `optional:"true"`
}

type Gateway struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       webhookdomain.Repository
	verifier   paymentdomain.WebhookVerifier
	decoder    paymentdomain.EventDecoder
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
}

func NewGateway(p GatewayParams) webhookdomain.Gateway {
	return &Gateway{
		db:         p.DB,
		log:        p.Log.Named("webhook.gateway"),
		clock:      p.Clock,
		repo:       p.Repo,
		verifier:   p.Verifier,
		decoder:    p.Decoder,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// Ingest authenticates, records and dispatches one delivery. The event row
// and every handler side effect commit together, so a failed handler leaves
// no trace and the provider's redelivery runs it again.
func (g *Gateway) Ingest(ctx context.Context, payload []byte, signatureHeader string) (webhookdomain.Result, error) {
	if err := g.verifier.Verify(payload, signatureHeader); err != nil {
		g.metrics.RecordWebhook("", metrics.WebhookInvalidSignature)
		g.log.Warn("webhook signature rejected")
		return webhookdomain.Result{}, paymentdomain.ErrInvalidSignature
	}

	event, err := g.decoder.DecodeEvent(payload)
	if err != nil {
		g.metrics.RecordWebhook("", metrics.WebhookFailed)
		return webhookdomain.Result{}, err
	}

	result := webhookdomain.Result{EventID: event.ID, EventType: event.Type}
	log := g.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := g.clock.Now()
		inserted, err := g.repo.Insert(ctx, tx, &webhookdomain.Event{
			EventID:    event.ID,
			Provider:   paymentdomain.ProviderStripe,
			EventType:  event.Type,
			ReceivedAt: now,
			Payload:    datatypes.JSON(payload),
		})
		if err != nil {
			return fmt.Errorf("%w: record event: %v", webhookdomain.ErrTransientPersistence, err)
		}
		if !inserted {
			result.Duplicate = true
			return nil
		}

		handled, err := g.dispatcher.Dispatch(ctx, tx, event)
		if err != nil {
			return err
		}
		result.Handled = handled

		if err := g.repo.MarkProcessed(ctx, tx, event.ID, now); err != nil {
			return fmt.Errorf("%w: mark processed: %v", webhookdomain.ErrTransientPersistence, err)
		}
		return nil
	})
	if err != nil {
		g.metrics.RecordWebhook(event.Type, metrics.WebhookFailed)
		log.Error("webhook processing failed", zap.Error(err))
		if errors.Is(err, webhookdomain.ErrTransientPersistence) {
			return result, err
		}
		return result, fmt.Errorf("%w: %w", webhookdomain.ErrTransientPersistence, err)
	}

	switch {
	case result.Duplicate:
		g.metrics.RecordWebhook(event.Type, metrics.WebhookDuplicate)
		log.Info("duplicate webhook delivery ignored")
	case !result.Handled:
		g.metrics.RecordWebhook(event.Type, metrics.WebhookIgnored)
	default:
		g.metrics.RecordWebhook(event.Type, metrics.WebhookAccepted)
		log.Info("webhook event processed")
	}
	return result, nil
}
