package service

import (
	"context"
	"fmt"
	"strings"

	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type VerifierParams struct {
	fx.In

	Log      *zap.Logger
	Provider paymentdomain.Provider
	Recorder checkoutdomain.VerificationRecorder `optional:"true"`
}

// Verifier re-reads a session from the provider. The success redirect alone
// proves nothing about payment.
type Verifier struct {
	log      *zap.Logger
	provider paymentdomain.Provider
	recorder checkoutdomain.VerificationRecorder
}

func NewVerifier(p VerifierParams) checkoutdomain.Verifier {
	return &Verifier{
		log:      p.Log.Named("checkout.verifier"),
		provider: p.Provider,
		recorder: p.Recorder,
	}
}

func (v *Verifier) Verify(ctx context.Context, sessionID string) (checkoutdomain.Verification, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return checkoutdomain.Verification{}, &checkoutdomain.ValidationError{
			Field:   "session_id",
			Code:    "required",
			Message: "session_id is required",
		}
	}

	session, err := v.provider.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return checkoutdomain.Verification{}, err
	}
	if !session.IsPaidOneTime() {
		v.log.Info("session not paid",
			zap.String("session_id", sessionID),
			zap.String("payment_status", session.PaymentStatus),
			zap.String("mode", session.Mode),
		)
		return checkoutdomain.Verification{}, checkoutdomain.ErrSessionNotPaid
	}
	if v.recorder != nil {
		if err := v.recorder.RecordVerification(ctx, session); err != nil {
			return checkoutdomain.Verification{}, fmt.Errorf("record verification %s: %w", sessionID, err)
		}
	}

	return checkoutdomain.Verification{
		OK:          true,
		Email:       session.ResolvedEmail(),
		AmountTotal: session.AmountTotal,
		Currency:    session.Currency,
		Metadata:    session.Metadata,
	}, nil
}
