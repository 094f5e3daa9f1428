package domain

import (
	"context"

	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
)

// Strategy creates a checkout session for one family of categories.
type Strategy interface {
	Name() string
	Create(ctx context.Context, caller Caller, req Request) (Session, error)
}

type Service interface {
	Create(ctx context.Context, caller Caller, req Request) (Session, error)
}

type Verifier interface {
	Verify(ctx context.Context, sessionID string) (Verification, error)
}

// VerificationRecorder marks the paying email verified from a session read
// back from the provider, so account creation does not wait on the webhook.
type VerificationRecorder interface {
	RecordVerification(ctx context.Context, session *paymentdomain.Session) error
}
