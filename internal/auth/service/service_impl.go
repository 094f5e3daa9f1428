package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/auth/password"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	fulfillmentdomain "github.com/smallbiznis/talentgate/internal/fulfillment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Verification fulfillmentdomain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	verification  fulfillmentdomain.Repository
	requireVerify bool
	hashParams    password.Params
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("auth.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		verification:  p.Verification,
		requireVerify: p.Cfg.Signup.RequireVerifiedEmail,
		hashParams:    password.DefaultParams,
	}
}

func (s *Service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if req.Password == "" {
		return nil, domain.ErrInvalidPassword
	}

	if s.requireVerify {
		verified, err := s.verification.IsVerified(ctx, s.db, email)
		if err != nil {
			return nil, err
		}
		if !verified {
			s.log.Info("signup rejected: email not verified")
			return nil, domain.ErrEmailNotVerified
		}
	}

	if _, err := s.repo.FindByEmail(ctx, s.db, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.HashWith(s.hashParams, req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(req.Name),
		UserType:     strings.TrimSpace(req.UserType),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("user_type", user.UserType))
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
