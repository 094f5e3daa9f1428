package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/apptest"
	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/config"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/smallbiznis/talentgate/internal/payment/paymenttest"
	"github.com/smallbiznis/talentgate/internal/ratelimit"
	"github.com/smallbiznis/talentgate/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Errors []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

func doJSON(t *testing.T, app *apptest.App, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch v := body.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func verificationCheckout() map[string]any {
	return map[string]any{
		"price_id":    "price_verify",
		"mode":        "payment",
		"success_url": "https://app.test/signup/complete?session_id={CHECKOUT_SESSION_ID}",
		"cancel_url":  "https://app.test/signup",
		"category":    "verification",
	}
}

func jobPostCheckout() map[string]any {
	return map[string]any{
		"price_id":    "price_job_post",
		"mode":        "payment",
		"success_url": "https://app.test/jobs/done",
		"cancel_url":  "https://app.test/jobs",
		"category":    "job_post",
	}
}

func TestHealth(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	rec := doJSON(t, app, "/nope", "{}", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Type)
}

func TestCheckoutVerificationIsAnonymous(t *testing.T) {
	app := apptest.New(t, apptest.Options{})

	rec := doJSON(t, app, "/checkout", verificationCheckout(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	assert.True(t, strings.HasPrefix(body.URL, "https://checkout.test/"))

	customers := app.Provider.Customers()
	require.Len(t, customers, 1)
	assert.Equal(t, "true", customers[0].Metadata[paymentdomain.MetadataPendingSignup])
	assert.EqualValues(t, 0, dbtest.Count(t, app.DB, "customer_mappings"))

	sessions := app.Provider.CreatedSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, paymentdomain.PurposeVerification, sessions[0].Metadata[paymentdomain.MetadataPurpose])
}

func TestCheckoutRequiresAuthenticationOutsideVerification(t *testing.T) {
	app := apptest.New(t, apptest.Options{})

	for _, header := range []map[string]string{nil, {"Authorization": "Bearer not-a-token"}} {
		rec := doJSON(t, app, "/checkout", jobPostCheckout(), header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Type)
	}
	assert.Empty(t, app.Provider.Customers())
	assert.Empty(t, app.Provider.CreatedSessions())
}

func TestCheckoutAuthenticatedReusesMapping(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	signed, err := app.Tokens.Issue(&authdomain.User{ID: 42, Email: "ada@example.com"})
	require.NoError(t, err)
	headers := map[string]string{"Authorization": "Bearer " + signed}

	for i := 0; i < 3; i++ {
		rec := doJSON(t, app, "/checkout", jobPostCheckout(), headers)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	assert.EqualValues(t, 1, dbtest.Count(t, app.DB, "customer_mappings"))
	assert.Len(t, app.Provider.Customers(), 1)
	for _, params := range app.Provider.CreatedSessions() {
		assert.Equal(t, "42", params.Metadata[paymentdomain.MetadataUserID])
	}
}

func TestDeleteBillingCustomerRetiresMapping(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	signed, err := app.Tokens.Issue(&authdomain.User{ID: 42, Email: "ada@example.com"})
	require.NoError(t, err)
	headers := map[string]string{"Authorization": "Bearer " + signed}

	deleteMapping := func(h map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/account/billing-customer", nil)
		for k, v := range h {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		app.Engine.ServeHTTP(rec, req)
		return rec
	}

	rec := doJSON(t, app, "/checkout", jobPostCheckout(), headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	anonymous := deleteMapping(nil)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)
	assert.Equal(t, "unauthorized", decodeError(t, anonymous).Error.Type)

	assert.Equal(t, http.StatusNoContent, deleteMapping(headers).Code)
	again := deleteMapping(headers)
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Equal(t, "not_found", decodeError(t, again).Error.Type)

	rec = doJSON(t, app, "/checkout", jobPostCheckout(), headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, app.Provider.Customers(), 2)
	assert.EqualValues(t, 2, dbtest.Count(t, app.DB, "customer_mappings"))
}

func TestCheckoutValidation(t *testing.T) {
	app := apptest.New(t, apptest.Options{})

	req := verificationCheckout()
	delete(req, "price_id")
	rec := doJSON(t, app, "/checkout", req, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "price_id", body.Error.Errors[0].Field)

	rec = doJSON(t, app, "/checkout", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, app.Provider.CreatedSessions())
}

func TestCheckoutRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewCheckoutLimiter(config.Config{RateLimit: config.RateLimitConfig{
		CheckoutEnabled: true,
		CheckoutRate:    0.01,
		CheckoutBurst:   1,
	}}, client, zap.NewNop())
	require.NoError(t, err)
	app := apptest.New(t, apptest.Options{Limiter: limiter})

	first := doJSON(t, app, "/checkout", verificationCheckout(), nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := doJSON(t, app, "/checkout", verificationCheckout(), nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "rate_limited", decodeError(t, second).Error.Type)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Len(t, app.Provider.CreatedSessions(), 1)
}

func paidVerificationEvent(app *apptest.App, eventID, sessionID string) []byte {
	session := app.Provider.Pay(sessionID, 100, "eur", "ada@example.com")
	session.Metadata = map[string]string{paymentdomain.MetadataPurpose: paymentdomain.PurposeVerification}
	return paymenttest.CheckoutCompletedPayload(eventID, *session)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	payload := paidVerificationEvent(app, "evt_bad", "cs_bad")
	header := paymenttest.Sign(payload, apptest.WebhookSecret)
	tampered := header[:len(header)-1] + flipHex(header[len(header)-1])

	for _, h := range []string{"", tampered, paymenttest.Sign(payload, "whsec_other")} {
		rec := doJSON(t, app, "/webhook", payload, map[string]string{"Stripe-Signature": h})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_signature", decodeError(t, rec).Error.Type)
	}
	assert.EqualValues(t, 0, dbtest.Count(t, app.DB, "webhook_events"))
	assert.EqualValues(t, 0, dbtest.Count(t, app.DB, "orders"))
}

func TestWebhookAcceptsAndDedupes(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	payload := paidVerificationEvent(app, "evt_1", "cs_1")
	headers := map[string]string{"Stripe-Signature": paymenttest.Sign(payload, apptest.WebhookSecret)}

	for i, wantDuplicate := range []bool{false, true, true} {
		rec := doJSON(t, app, "/webhook", payload, headers)
		require.Equal(t, http.StatusOK, rec.Code, "delivery %d: %s", i, rec.Body.String())
		var body struct {
			Duplicate bool `json:"duplicate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, wantDuplicate, body.Duplicate)
	}

	assert.EqualValues(t, 1, dbtest.Count(t, app.DB, "webhook_events"))
	assert.EqualValues(t, 1, dbtest.Count(t, app.DB, "orders"))
	assert.EqualValues(t, 1, dbtest.Count(t, app.DB, "verification_emails"))
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	payload := bytes.Repeat([]byte("a"), 70000)
	rec := doJSON(t, app, "/webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 0, dbtest.Count(t, app.DB, "webhook_events"))
}

func TestVerifySession(t *testing.T) {
	app := apptest.New(t, apptest.Options{})

	created := doJSON(t, app, "/checkout", verificationCheckout(), nil)
	require.Equal(t, http.StatusOK, created.Code)
	var session struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &session))

	rec := doJSON(t, app, "/verify-session", map[string]string{"session_id": session.SessionID}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "session_not_paid", decodeError(t, rec).Error.Type)

	app.Provider.Pay(session.SessionID, 100, "eur", "Ada@Example.com")
	rec = doJSON(t, app, "/verify-session", map[string]string{"session_id": session.SessionID}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		OK          bool   `json:"ok"`
		Email       string `json:"email"`
		AmountTotal int64  `json:"amount_total"`
		Currency    string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "ada@example.com", body.Email)
	assert.EqualValues(t, 100, body.AmountTotal)
	assert.Equal(t, "eur", body.Currency)

	rec = doJSON(t, app, "/verify-session", map[string]string{"session_id": "cs_missing"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "session_not_paid", decodeError(t, rec).Error.Type)

	rec = doJSON(t, app, "/verify-session", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignUpRequiresVerifiedEmail(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	signup := map[string]string{"email": "ada@example.com", "password": "x", "name": "Ada Lovelace", "user_type": "job_seeker"}

	rec := doJSON(t, app, "/auth/signup", signup, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Error.Type)

	payload := paidVerificationEvent(app, "evt_1", "cs_1")
	hook := doJSON(t, app, "/webhook", payload, map[string]string{"Stripe-Signature": paymenttest.Sign(payload, apptest.WebhookSecret)})
	require.Equal(t, http.StatusOK, hook.Code, hook.Body.String())

	rec = doJSON(t, app, "/auth/signup", signup, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims, err := app.Tokens.Parse(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.UserID, claims.Subject)

	rec = doJSON(t, app, "/auth/signup", signup, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignUpValidation(t *testing.T) {
	app := apptest.New(t, apptest.Options{})
	rec := doJSON(t, app, "/auth/signup", map[string]string{"email": "nope", "password": "x"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "email", body.Error.Errors[0].Field)
}

func flipHex(c byte) string {
	if c == '0' {
		return "1"
	}
	return "0"
}
