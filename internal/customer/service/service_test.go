package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/customer/domain"
	"github.com/smallbiznis/talentgate/internal/customer/repository"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/smallbiznis/talentgate/internal/payment/paymenttest"
	"github.com/smallbiznis/talentgate/pkg/db/dbtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *paymenttest.Provider) {
	t.Helper()
	conn := dbtest.New(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	provider := paymenttest.NewProvider()
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Provider: provider,
		Clock:    clock.NewFakeClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
	}).(*Service)
	return svc, conn, provider
}

func TestResolveSequentialCallsShareOneMapping(t *testing.T) {
	svc, conn, provider := newTestService(t)
	ctx := context.Background()

	var first domain.Mapping
	for i := 0; i < 5; i++ {
		mapping, err := svc.Resolve(ctx, domain.ResolveRequest{LocalUserID: "42", Email: "Ada@Example.com"})
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if i == 0 {
			first = mapping
			continue
		}
		if mapping.ProviderCustomerID != first.ProviderCustomerID {
			t.Fatalf("expected stable customer id, got %s and %s", first.ProviderCustomerID, mapping.ProviderCustomerID)
		}
	}

	if got := dbtest.Count(t, conn, "customer_mappings"); got != 1 {
		t.Fatalf("expected 1 mapping, got %d", got)
	}
	customers := provider.Customers()
	if len(customers) != 1 {
		t.Fatalf("expected 1 provider customer, got %d", len(customers))
	}
	if customers[0].Metadata[paymentdomain.MetadataLocalUserID] != "42" {
		t.Fatalf("expected user_id metadata, got %v", customers[0].Metadata)
	}
	if first.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", first.Email)
	}
}

func TestResolveConcurrentCallsShareOneMapping(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	const workers = 8
	results := make([]domain.Mapping, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Resolve(ctx, domain.ResolveRequest{LocalUserID: "7"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if results[i].ProviderCustomerID != results[0].ProviderCustomerID {
			t.Fatalf("worker %d got %s, want %s", i, results[i].ProviderCustomerID, results[0].ProviderCustomerID)
		}
	}

	var live int64
	if err := conn.Raw(`SELECT COUNT(*) FROM customer_mappings WHERE local_user_id = ? AND deleted_at IS NULL`, "7").Scan(&live).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if live != 1 {
		t.Fatalf("expected 1 live mapping, got %d", live)
	}
}

func TestResolveDistinctUsers(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if _, err := svc.Resolve(ctx, domain.ResolveRequest{LocalUserID: strconv.Itoa(i)}); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if got := dbtest.Count(t, conn, "customer_mappings"); got != 3 {
		t.Fatalf("expected 3 mappings, got %d", got)
	}
}

func TestResolveRequiresUser(t *testing.T) {
	svc, _, provider := newTestService(t)
	if _, err := svc.Resolve(context.Background(), domain.ResolveRequest{LocalUserID: "  "}); !errors.Is(err, domain.ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if len(provider.Customers()) != 0 {
		t.Fatalf("expected no provider calls")
	}
}

func TestResolveProviderFailureLeavesNoMapping(t *testing.T) {
	svc, conn, provider := newTestService(t)
	provider.Err = paymentdomain.ErrProviderUnavailable

	_, err := svc.Resolve(context.Background(), domain.ResolveRequest{LocalUserID: "9"})
	if !errors.Is(err, paymentdomain.ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := dbtest.Count(t, conn, "customer_mappings"); got != 0 {
		t.Fatalf("expected no mapping, got %d", got)
	}
}

func TestSoftDeleteAllowsFreshMapping(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, domain.ResolveRequest{LocalUserID: "5"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := svc.SoftDelete(ctx, "5"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.SoftDelete(ctx, "5"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	second, err := svc.Resolve(ctx, domain.ResolveRequest{LocalUserID: "5"})
	if err != nil {
		t.Fatalf("resolve after delete: %v", err)
	}
	if second.ProviderCustomerID == first.ProviderCustomerID {
		t.Fatalf("expected a new provider customer after delete")
	}
	if got := dbtest.Count(t, conn, "customer_mappings"); got != 2 {
		t.Fatalf("expected 2 rows (one deleted), got %d", got)
	}
}

func TestCreatePendingCustomerIsUnmapped(t *testing.T) {
	svc, conn, provider := newTestService(t)

	id, err := svc.CreatePendingCustomer(context.Background(), domain.PendingCustomerRequest{Email: "ADA@example.com"})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if id == "" {
		t.Fatalf("expected customer id")
	}
	customers := provider.Customers()
	if len(customers) != 1 || customers[0].Metadata[paymentdomain.MetadataPendingSignup] != "true" {
		t.Fatalf("expected pending_signup metadata, got %+v", customers)
	}
	if customers[0].Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", customers[0].Email)
	}
	if got := dbtest.Count(t, conn, "customer_mappings"); got != 0 {
		t.Fatalf("expected no mapping, got %d", got)
	}
}
