// Package token issues and parses the bearer credentials used by the HTTP
// surface.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTTL = 24 * time.Hour

var ErrMissingSecret = errors.New("jwt_secret_missing")

type Claims struct {
	Email    string `json:"email,omitempty"`
	UserType string `json:"user_type,omitempty"`
	jwt.RegisteredClaims
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

// Service signs HS256 tokens whose subject is the local user id.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// Provide builds the token service from config. Outside production an empty
// secret is replaced by a random per-process key.
func Provide(p Params) (*Service, error) {
	secret := strings.TrimSpace(p.Cfg.Auth.JWTSecret)
	if secret == "" {
		if p.Cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		p.Log.Named("auth.token").Warn("AUTH_JWT_SECRET not set, using an ephemeral signing key")
		secret = generated
	}
	return New(secret, p.Cfg.Auth.JWTIssuer, p.Cfg.Auth.TokenTTL, p.Clock)
}

func New(secret, issuer string, ttl time.Duration, clk clock.Clock) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		clock:  clk,
	}, nil
}

func (s *Service) Issue(user *domain.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", domain.ErrUserNotFound
	}
	now := s.clock.Now()
	claims := Claims{
		Email:    user.Email,
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse returns the claims of a valid token. Every failure wraps
// domain.ErrInvalidToken.
func (s *Service) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
