package signup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	mu     sync.Mutex
	result domain.SessionVerification
	err    error
	block  bool
	calls  []string
}

func (f *fakeVerifier) VerifySession(ctx context.Context, sessionID string) (domain.SessionVerification, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sessionID)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return domain.SessionVerification{}, ctx.Err()
	}
	return f.result, f.err
}

type fakeBackend struct {
	mu    sync.Mutex
	err   error
	calls []domain.PendingSignupData
}

func (f *fakeBackend) SignUp(_ context.Context, data domain.PendingSignupData) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, data)
	if f.err != nil {
		return domain.Account{}, f.err
	}
	return domain.Account{UserID: "42", Token: "token"}, nil
}

type flowFixture struct {
	flow     *Flow
	store    *MemoryStore
	verifier *fakeVerifier
	backend  *fakeBackend
	clock    *clock.FakeClock
}

func newFlowFixture(t *testing.T, pricing config.PricingConfig) *flowFixture {
	t.Helper()
	fx := &flowFixture{
		store:    NewMemoryStore(),
		verifier: &fakeVerifier{result: domain.SessionVerification{OK: true, Email: "ada@example.com"}},
		backend:  &fakeBackend{},
		clock:    clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	fx.flow = NewFlow(FlowParams{
		Log:      zap.NewNop(),
		Clock:    fx.clock,
		Store:    fx.store,
		Verifier: fx.verifier,
		Backend:  fx.backend,
		Pricing:  config.NewStaticPricingHolder(pricing),
	})
	return fx
}

func stageAda(t *testing.T, store domain.Store) {
	t.Helper()
	err := Stage(context.Background(), store, domain.PendingSignupData{
		Name:     "Ada Lovelace",
		Email:    "Ada@Example.com",
		Password: "x",
		UserType: "job_seeker",
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
}

func assertCleared(t *testing.T, store domain.Store) {
	t.Helper()
	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNoPendingSignup) {
		t.Fatalf("expected pending data to be cleared, got %v", err)
	}
}

func TestCompleteSuccess(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())
	stageAda(t, fx.store)

	out := fx.flow.Complete(context.Background(), "cs_test_1")

	if out.State != domain.StateSuccess || out.Err != nil {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.RedirectPath != "/onboarding/job-seeker" || out.RedirectAfter != 3*time.Second {
		t.Fatalf("unexpected redirect %q after %v", out.RedirectPath, out.RedirectAfter)
	}
	if out.UserID != "42" {
		t.Fatalf("expected user id 42, got %q", out.UserID)
	}
	if len(fx.backend.calls) != 1 || fx.backend.calls[0].Email != "ada@example.com" || fx.backend.calls[0].Password != "x" {
		t.Fatalf("unexpected signup calls %+v", fx.backend.calls)
	}
	assertCleared(t, fx.store)
}

func TestCompleteWithoutPendingData(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())

	out := fx.flow.Complete(context.Background(), "cs_test_1")

	if out.State != domain.StateError || !errors.Is(out.Err, domain.ErrNoPendingSignup) {
		t.Fatalf("expected ErrNoPendingSignup, got %+v", out)
	}
	if len(fx.verifier.calls) != 0 || len(fx.backend.calls) != 0 {
		t.Fatal("expected no downstream calls")
	}
}

func TestCompleteNeverSignsUpWithoutPaidSession(t *testing.T) {
	cases := []struct {
		name   string
		result domain.SessionVerification
		err    error
	}{
		{"not paid", domain.SessionVerification{OK: false}, nil},
		{"verification error", domain.SessionVerification{}, errors.New("session_not_paid")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFlowFixture(t, config.DefaultPricingConfig())
			fx.verifier.result = tc.result
			fx.verifier.err = tc.err
			stageAda(t, fx.store)

			out := fx.flow.Complete(context.Background(), "cs_test_1")

			if out.State != domain.StateError || !errors.Is(out.Err, domain.ErrPaymentNotConfirmed) {
				t.Fatalf("expected ErrPaymentNotConfirmed, got %+v", out)
			}
			if len(fx.backend.calls) != 0 {
				t.Fatal("account creation must not run before payment is confirmed")
			}
			assertCleared(t, fx.store)
		})
	}
}

func TestCompleteVerificationTimeout(t *testing.T) {
	pricing := config.DefaultPricingConfig()
	pricing.VerifyTimeout = 20 * time.Millisecond
	fx := newFlowFixture(t, pricing)
	fx.verifier.block = true
	stageAda(t, fx.store)

	out := fx.flow.Complete(context.Background(), "cs_test_1")

	if out.State != domain.StateError || !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %+v", out)
	}
	if len(fx.backend.calls) != 0 {
		t.Fatal("expected no signup after timeout")
	}
	assertCleared(t, fx.store)
}

func TestCompleteAccountCreationFailure(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())
	cause := errors.New("user already exists")
	fx.backend.err = cause
	stageAda(t, fx.store)

	out := fx.flow.Complete(context.Background(), "cs_test_1")

	var accErr *domain.AccountCreationError
	if out.State != domain.StateError || !errors.As(out.Err, &accErr) || !errors.Is(out.Err, cause) {
		t.Fatalf("expected AccountCreationError, got %+v", out)
	}
	assertCleared(t, fx.store)

	// A retry with the same session has nothing to replay.
	again := fx.flow.Complete(context.Background(), "cs_test_1")
	if !errors.Is(again.Err, domain.ErrNoPendingSignup) {
		t.Fatalf("expected ErrNoPendingSignup on retry, got %v", again.Err)
	}
}

func TestRedirectWaitsForDelay(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())
	out := domain.Outcome{State: domain.StateSuccess, RedirectPath: "/onboarding/employer", RedirectAfter: 3 * time.Second}

	navigated := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- fx.flow.Redirect(context.Background(), out, domain.NavigatorFunc(func(path string) { navigated <- path }))
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case path := <-navigated:
			if path != "/onboarding/employer" {
				t.Fatalf("unexpected path %q", path)
			}
			if err := <-done; err != nil {
				t.Fatalf("redirect: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("redirect never happened")
		case <-time.After(5 * time.Millisecond):
			fx.clock.Advance(time.Second)
		}
	}
}

func TestRedirectStopsOnCancel(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())
	out := domain.Outcome{State: domain.StateSuccess, RedirectPath: "/onboarding/employer", RedirectAfter: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := fx.flow.Redirect(ctx, out, domain.NavigatorFunc(func(string) { called = true }))
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation without navigation, got %v (called=%v)", err, called)
	}
}

func TestRedirectRejectsErrorOutcome(t *testing.T) {
	fx := newFlowFixture(t, config.DefaultPricingConfig())
	err := fx.flow.Redirect(context.Background(), domain.Outcome{State: domain.StateError}, domain.NavigatorFunc(func(string) {}))
	if !errors.Is(err, domain.ErrNotRedirectable) {
		t.Fatalf("expected ErrNotRedirectable, got %v", err)
	}
}

func TestOnboardingPath(t *testing.T) {
	paths := config.DefaultPricingConfig().OnboardingPaths
	cases := map[string]string{
		"job_seeker":   "/onboarding/job-seeker",
		"Employer":     "/onboarding/employer",
		"Talent Scout": "/onboarding/talent-scout",
		"":             "/onboarding",
	}
	for role, want := range cases {
		if got := OnboardingPath(paths, role); got != want {
			t.Fatalf("OnboardingPath(%q) = %q, want %q", role, got, want)
		}
	}
}
