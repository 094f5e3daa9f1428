package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	fulfillmentdomain "github.com/smallbiznis/talentgate/internal/fulfillment/domain"
	"github.com/smallbiznis/talentgate/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    fulfillmentdomain.Repository
	Decoder paymentdomain.EventDecoder
	Pricing *config.PricingHolder
	Metrics *metrics.Metrics `optional:"true"`
}

// Reconciler turns completed checkout sessions into orders and, for
// verification payments at the expected price, verified emails.
type Reconciler struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    fulfillmentdomain.Repository
	decoder paymentdomain.EventDecoder
	pricing *config.PricingHolder
	metrics *metrics.Metrics
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		db:      p.DB,
		log:     p.Log.Named("fulfillment.reconciler"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		decoder: p.Decoder,
		pricing: p.Pricing,
		metrics: p.Metrics,
	}
}

// HandleCheckoutCompleted runs inside the webhook transaction. Any returned
// error rolls the delivery back.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error {
	session, err := r.decoder.DecodeCheckoutSession(event.Object)
	if err != nil {
		return fmt.Errorf("decode checkout session %s: %w", event.ID, err)
	}

	email := session.ResolvedEmail()
	purpose := strings.TrimSpace(session.Metadata[paymentdomain.MetadataPurpose])
	log := r.log.With(
		zap.String("event_id", event.ID),
		zap.String("session_id", session.ID),
		zap.String("purpose", purpose),
	)

	order := &fulfillmentdomain.Order{
		ID:                 r.genID.Generate(),
		SessionID:          session.ID,
		PaymentIntentID:    optional(session.PaymentIntentID),
		ProviderCustomerID: optional(session.CustomerID),
		Email:              email,
		AmountTotal:        session.AmountTotal,
		Currency:           strings.ToLower(session.Currency),
		PaymentStatus:      session.PaymentStatus,
		Purpose:            purpose,
		Metadata:           toJSONMap(session.Metadata),
		Payload:            datatypes.JSON(event.Payload),
		CreatedAt:          r.clock.Now(),
	}
	inserted, err := r.repo.InsertOrder(ctx, tx, order)
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	if inserted {
		log.Info("order recorded", zap.Int64("amount_total", order.AmountTotal), zap.String("currency", order.Currency))
	} else {
		log.Info("order already recorded for session")
	}

	if purpose != paymentdomain.PurposeVerification {
		return nil
	}
	return r.verifyEmail(ctx, tx, log, session, email)
}

// RecordVerification applies the verification rules to a session read back
// from the provider outside any webhook delivery. Repeating it, or the
// completion event arriving later, leaves the same row.
func (r *Reconciler) RecordVerification(ctx context.Context, session *paymentdomain.Session) error {
	if strings.TrimSpace(session.Metadata[paymentdomain.MetadataPurpose]) != paymentdomain.PurposeVerification {
		return nil
	}
	log := r.log.With(zap.String("session_id", session.ID), zap.String("source", "verify_session"))
	return r.verifyEmail(ctx, r.db, log, session, session.ResolvedEmail())
}

func (r *Reconciler) verifyEmail(ctx context.Context, tx *gorm.DB, log *zap.Logger, session *paymentdomain.Session, email string) error {
	if session.PaymentStatus != paymentdomain.PaymentStatusPaid {
		log.Info("verification awaiting payment", zap.String("payment_status", session.PaymentStatus))
		return nil
	}

	if err := r.checkPrice(session); err != nil {
		var mismatch *fulfillmentdomain.PriceMismatchError
		if errors.As(err, &mismatch) {
			r.metrics.RecordVerification(metrics.VerificationPriceMismatch)
			log.Warn("verification withheld", zap.Error(err))
			return nil
		}
		return err
	}

	if email == "" {
		r.metrics.RecordVerification(metrics.VerificationMissingEmail)
		log.Warn("verification withheld", zap.Error(fulfillmentdomain.ErrMissingEmail))
		return nil
	}

	now := r.clock.Now()
	if err := r.repo.UpsertVerificationEmail(ctx, tx, &fulfillmentdomain.VerificationEmail{
		Email:         email,
		IsVerified:    true,
		VerifiedAt:    &now,
		LastSessionID: session.ID,
		UpdatedAt:     now,
	}); err != nil {
		return fmt.Errorf("upsert verification email: %w", err)
	}
	r.metrics.RecordVerification(metrics.VerificationVerified)
	log.Info("email verified")
	return nil
}

func (r *Reconciler) checkPrice(session *paymentdomain.Session) error {
	expected := r.pricing.Get().Verification
	if expected.Matches(session.AmountTotal, session.Currency) {
		return nil
	}
	return &fulfillmentdomain.PriceMismatchError{
		Expected: fulfillmentdomain.Amount{Value: expected.Amount, Currency: expected.Currency},
		Got:      fulfillmentdomain.Amount{Value: session.AmountTotal, Currency: strings.ToLower(session.Currency)},
	}
}

func (r *Reconciler) IsVerified(ctx context.Context, email string) (bool, error) {
	return r.repo.IsVerified(ctx, r.db, paymentdomain.NormalizeEmail(email))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func toJSONMap(in map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
