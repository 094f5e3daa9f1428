package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/smallbiznis/talentgate/internal/payment/paymenttest"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	"github.com/smallbiznis/talentgate/internal/webhook/repository"
	"github.com/smallbiznis/talentgate/pkg/db/dbtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "whsec_gateway"

type countingHandler struct {
	calls atomic.Int32
	err   error
}

func (h *countingHandler) Handle(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event) error {
	h.calls.Add(1)
	if h.err != nil {
		return h.err
	}
	return tx.Exec(`INSERT INTO verification_emails (email, is_verified, last_session_id, updated_at) VALUES (?, ?, ?, ?)`,
		event.ID+"@example.com", true, event.ID, time.Now()).Error
}

func newGateway(t *testing.T, handler webhookdomain.Handler) (webhookdomain.Gateway, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t)
	hooks, err := stripe.NewWebhooks(testSecret, 0)
	if err != nil {
		t.Fatalf("webhooks: %v", err)
	}
	dispatcher, err := NewDispatcher(DispatcherParams{
		Log: zap.NewNop(),
		Routes: []webhookdomain.Route{{
			EventTypes: []string{webhookdomain.EventCheckoutSessionCompleted},
			Handler:    handler,
		}},
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	gw := NewGateway(GatewayParams{
		DB:         conn,
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:       repository.Provide(),
		Verifier:   hooks,
		Decoder:    hooks,
		Dispatcher: dispatcher,
	})
	return gw, conn
}

func completedPayload(eventID string) []byte {
	return paymenttest.CheckoutCompletedPayload(eventID, paymentdomain.Session{
		ID:            "cs_" + eventID,
		Mode:          "payment",
		PaymentStatus: "paid",
		AmountTotal:   100,
		Currency:      "eur",
	})
}

func TestIngestDispatchesOnceAndDedupesRedelivery(t *testing.T) {
	handler := &countingHandler{}
	gw, conn := newGateway(t, handler)
	payload := completedPayload("evt_1")
	header := paymenttest.Sign(payload, testSecret)

	res, err := gw.Ingest(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Duplicate || !res.Handled || res.EventID != "evt_1" {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = gw.Ingest(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate on redelivery, got %+v", res)
	}
	if got := handler.calls.Load(); got != 1 {
		t.Fatalf("expected one dispatch, got %d", got)
	}
	if got := dbtest.Count(t, conn, "webhook_events"); got != 1 {
		t.Fatalf("expected one event row, got %d", got)
	}

	var processed int64
	if err := conn.Raw(`SELECT COUNT(*) FROM webhook_events WHERE event_id = ? AND processed_at IS NOT NULL`, "evt_1").Scan(&processed).Error; err != nil {
		t.Fatalf("count processed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected processed_at to be set")
	}
}

func TestIngestConcurrentDeliveriesDispatchOnce(t *testing.T) {
	handler := &countingHandler{}
	gw, conn := newGateway(t, handler)
	payload := completedPayload("evt_concurrent")
	header := paymenttest.Sign(payload, testSecret)

	const deliveries = 10
	var wg sync.WaitGroup
	var duplicates atomic.Int32
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := gw.Ingest(context.Background(), payload, header)
			if err != nil {
				errs <- err
				return
			}
			if res.Duplicate {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ingest: %v", err)
	}

	if got := handler.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", got)
	}
	if got := duplicates.Load(); got != deliveries-1 {
		t.Fatalf("expected %d duplicates, got %d", deliveries-1, got)
	}
	if got := dbtest.Count(t, conn, "verification_emails"); got != 1 {
		t.Fatalf("expected one side effect, got %d", got)
	}
}

func TestIngestRejectsBadSignatureWithoutSideEffects(t *testing.T) {
	handler := &countingHandler{}
	gw, conn := newGateway(t, handler)
	payload := completedPayload("evt_forged")
	header := []byte(paymenttest.Sign(payload, testSecret))
	last := len(header) - 1
	if header[last] == '0' {
		header[last] = '1'
	} else {
		header[last] = '0'
	}

	_, err := gw.Ingest(context.Background(), payload, string(header))
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if got := dbtest.Count(t, conn, "webhook_events"); got != 0 {
		t.Fatalf("expected zero event rows, got %d", got)
	}
	if handler.calls.Load() != 0 {
		t.Fatalf("expected no dispatch")
	}
}

func TestIngestHandlerFailureRollsBackEvent(t *testing.T) {
	handler := &countingHandler{err: errors.New("db down")}
	gw, conn := newGateway(t, handler)
	payload := completedPayload("evt_retry")
	header := paymenttest.Sign(payload, testSecret)

	_, err := gw.Ingest(context.Background(), payload, header)
	if !errors.Is(err, webhookdomain.ErrTransientPersistence) {
		t.Fatalf("expected ErrTransientPersistence, got %v", err)
	}
	if got := dbtest.Count(t, conn, "webhook_events"); got != 0 {
		t.Fatalf("failed event must not be recorded, got %d rows", got)
	}

	handler.err = nil
	res, err := gw.Ingest(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if res.Duplicate || !res.Handled {
		t.Fatalf("expected redelivery to run fulfillment, got %+v", res)
	}
	if got := handler.calls.Load(); got != 2 {
		t.Fatalf("expected two attempts, got %d", got)
	}
}

func TestIngestIgnoresUnknownTypes(t *testing.T) {
	handler := &countingHandler{}
	gw, conn := newGateway(t, handler)
	payload := paymenttest.EventPayload("evt_new", "radar.early_fraud_warning.created", map[string]any{"id": "issfr_1"})

	res, err := gw.Ingest(context.Background(), payload, paymenttest.Sign(payload, testSecret))
	if err != nil {
		t.Fatalf("unknown types must be accepted, got %v", err)
	}
	if res.Handled || res.Duplicate {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := dbtest.Count(t, conn, "webhook_events"); got != 1 {
		t.Fatalf("expected event recorded, got %d", got)
	}
	if handler.calls.Load() != 0 {
		t.Fatalf("expected no dispatch")
	}
}

func TestIngestRejectsSignedGarbage(t *testing.T) {
	gw, conn := newGateway(t, &countingHandler{})
	payload := []byte(`{"type":"checkout.session.completed"}`)

	_, err := gw.Ingest(context.Background(), payload, paymenttest.Sign(payload, testSecret))
	if !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if got := dbtest.Count(t, conn, "webhook_events"); got != 0 {
		t.Fatalf("expected zero rows, got %d", got)
	}
}

func TestDispatcherRejectsDuplicateRoutes(t *testing.T) {
	h := &countingHandler{}
	_, err := NewDispatcher(DispatcherParams{
		Log: zap.NewNop(),
		Routes: []webhookdomain.Route{
			{EventTypes: []string{"a"}, Handler: h},
			{EventTypes: []string{"a"}, Handler: h},
		},
	})
	if err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
