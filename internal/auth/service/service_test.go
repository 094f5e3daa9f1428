package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/auth/password"
	"github.com/smallbiznis/talentgate/internal/auth/repository"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	fulfillmentdomain "github.com/smallbiznis/talentgate/internal/fulfillment/domain"
	fulfillmentrepo "github.com/smallbiznis/talentgate/internal/fulfillment/repository"
	"github.com/smallbiznis/talentgate/pkg/db/dbtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestService(t *testing.T, requireVerified bool) (*Service, *gorm.DB, fulfillmentdomain.Repository) {
	t.Helper()
	conn := dbtest.New(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	verification := fulfillmentrepo.Provide()
	cfg := config.Config{Signup: config.SignupConfig{RequireVerifiedEmail: requireVerified}}
	svc := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		Cfg:          cfg,
		GenID:        node,
		Clock:        clock.NewFakeClock(testNow),
		Repo:         repository.Provide(),
		Verification: verification,
	}).(*Service)
	svc.hashParams = password.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
	return svc, conn, verification
}

func markVerified(t *testing.T, conn *gorm.DB, repo fulfillmentdomain.Repository, email string) {
	t.Helper()
	verifiedAt := testNow
	err := repo.UpsertVerificationEmail(context.Background(), conn, &fulfillmentdomain.VerificationEmail{
		Email:         email,
		IsVerified:    true,
		VerifiedAt:    &verifiedAt,
		LastSessionID: "cs_test_1",
		UpdatedAt:     testNow,
	})
	if err != nil {
		t.Fatalf("upsert verification: %v", err)
	}
}

func TestSignUpRequiresVerifiedEmail(t *testing.T) {
	svc, conn, _ := newTestService(t, true)

	_, err := svc.SignUp(context.Background(), domain.SignUpRequest{
		Email:    "ada@example.com",
		Password: "x",
		Name:     "Ada Lovelace",
		UserType: "job_seeker",
	})
	if !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
	if got := dbtest.Count(t, conn, "users"); got != 0 {
		t.Fatalf("expected no users, got %d", got)
	}
}

func TestSignUpCreatesUserForVerifiedEmail(t *testing.T) {
	svc, conn, verification := newTestService(t, true)
	markVerified(t, conn, verification, "ada@example.com")

	user, err := svc.SignUp(context.Background(), domain.SignUpRequest{
		Email:    "  Ada@Example.COM ",
		Password: "x",
		Name:     "Ada Lovelace",
		UserType: "job_seeker",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "ada@example.com" || user.UserType != "job_seeker" || user.ID == 0 {
		t.Fatalf("unexpected user %+v", user)
	}
	if !user.CreatedAt.Equal(testNow) {
		t.Fatalf("expected created_at %v, got %v", testNow, user.CreatedAt)
	}

	stored, err := svc.repo.FindByEmail(context.Background(), conn, "ada@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.PasswordHash == "x" || !password.Verify("x", stored.PasswordHash) {
		t.Fatal("expected stored argon2id hash of the password")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc, conn, verification := newTestService(t, true)
	markVerified(t, conn, verification, "ada@example.com")
	req := domain.SignUpRequest{Email: "ada@example.com", Password: "x", UserType: "job_seeker"}

	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if got := dbtest.Count(t, conn, "users"); got != 1 {
		t.Fatalf("expected 1 user, got %d", got)
	}
}

func TestSignUpWithoutVerificationGate(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	if _, err := svc.SignUp(context.Background(), domain.SignUpRequest{Email: "grace@example.com", Password: "x"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
}

func TestSignUpValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	cases := []struct {
		name string
		req  domain.SignUpRequest
		want error
	}{
		{"empty email", domain.SignUpRequest{Password: "x"}, domain.ErrInvalidEmail},
		{"malformed email", domain.SignUpRequest{Email: "not-an-email", Password: "x"}, domain.ErrInvalidEmail},
		{"empty password", domain.SignUpRequest{Email: "ada@example.com"}, domain.ErrInvalidPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignUp(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRepositoryInsertMapsDuplicate(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.Provide()
	user := &domain.User{ID: 1, Email: "ada@example.com", PasswordHash: "h", CreatedAt: testNow}
	if err := repo.Insert(context.Background(), conn, user); err != nil {
		t.Fatalf("insert: %v", err)
	}
	user.ID = 2
	if err := repo.Insert(context.Background(), conn, user); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := repo.FindByEmail(context.Background(), conn, "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
