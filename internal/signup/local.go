package signup

import (
	"context"

	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/auth/token"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
)

// localVerifier verifies sessions in process for server-rendered front ends.
type localVerifier struct {
	verifier checkoutdomain.Verifier
}

func NewLocalVerifier(v checkoutdomain.Verifier) domain.SessionVerifier {
	return &localVerifier{verifier: v}
}

func (l *localVerifier) VerifySession(ctx context.Context, sessionID string) (domain.SessionVerification, error) {
	v, err := l.verifier.Verify(ctx, sessionID)
	if err != nil {
		return domain.SessionVerification{}, err
	}
	return domain.SessionVerification{
		OK:          v.OK,
		Email:       v.Email,
		AmountTotal: v.AmountTotal,
		Currency:    v.Currency,
		Metadata:    v.Metadata,
	}, nil
}

type localBackend struct {
	users  authdomain.Service
	tokens *token.Service
}

func NewLocalBackend(users authdomain.Service, tokens *token.Service) domain.IdentityBackend {
	return &localBackend{users: users, tokens: tokens}
}

func (l *localBackend) SignUp(ctx context.Context, data domain.PendingSignupData) (domain.Account, error) {
	user, err := l.users.SignUp(ctx, authdomain.SignUpRequest{
		Email:    data.Email,
		Password: data.Password,
		Name:     data.Name,
		UserType: data.UserType,
	})
	if err != nil {
		return domain.Account{}, err
	}
	signed, err := l.tokens.Issue(user)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{UserID: user.ID.String(), Token: signed}, nil
}
