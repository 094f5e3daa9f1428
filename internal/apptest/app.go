// Package apptest assembles the HTTP service over an in-memory database and
// a fake payment provider.
package apptest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	authrepo "github.com/smallbiznis/talentgate/internal/auth/repository"
	authservice "github.com/smallbiznis/talentgate/internal/auth/service"
	"github.com/smallbiznis/talentgate/internal/auth/token"
	checkoutservice "github.com/smallbiznis/talentgate/internal/checkout/service"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	customerrepo "github.com/smallbiznis/talentgate/internal/customer/repository"
	customerservice "github.com/smallbiznis/talentgate/internal/customer/service"
	"github.com/smallbiznis/talentgate/internal/fulfillment"
	fulfillmentrepo "github.com/smallbiznis/talentgate/internal/fulfillment/repository"
	fulfillmentservice "github.com/smallbiznis/talentgate/internal/fulfillment/service"
	"github.com/smallbiznis/talentgate/internal/observability"
	obsmetrics "github.com/smallbiznis/talentgate/internal/observability/metrics"
	"github.com/smallbiznis/talentgate/internal/payment/adapters/stripe"
	"github.com/smallbiznis/talentgate/internal/payment/paymenttest"
	"github.com/smallbiznis/talentgate/internal/ratelimit"
	"github.com/smallbiznis/talentgate/internal/server"
	"github.com/smallbiznis/talentgate/internal/signup"
	"github.com/smallbiznis/talentgate/internal/subscription"
	subscriptionrepo "github.com/smallbiznis/talentgate/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/talentgate/internal/subscription/service"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	webhookrepo "github.com/smallbiznis/talentgate/internal/webhook/repository"
	webhookservice "github.com/smallbiznis/talentgate/internal/webhook/service"
	"github.com/smallbiznis/talentgate/pkg/db/dbtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	WebhookSecret = "whsec_apptest"
	JWTSecret     = "apptest-secret"
)

// App is a fully wired service instance.
type App struct {
	Engine   *gin.Engine
	DB       *gorm.DB
	Provider *paymenttest.Provider
	Clock    *clock.FakeClock
	Tokens   *token.Service
	Signup   *signup.Service
}

type Options struct {
	// Limiter, when set, guards POST /checkout.
	Limiter *ratelimit.CheckoutLimiter
	// Pricing overrides the default verification price and onboarding paths.
	Pricing *config.PricingConfig
}

func New(t testing.TB, opts Options) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	conn := dbtest.New(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	provider := paymenttest.NewProvider()
	hooks, err := stripe.NewWebhooks(WebhookSecret, 0)
	if err != nil {
		t.Fatalf("webhooks: %v", err)
	}
	pricingCfg := config.DefaultPricingConfig()
	if opts.Pricing != nil {
		pricingCfg = *opts.Pricing
	}
	pricing := config.NewStaticPricingHolder(pricingCfg)
	cfg := config.Config{
		Environment: "test",
		Signup:      config.SignupConfig{RequireVerifiedEmail: true},
	}

	reg := prometheus.NewRegistry()
	metrics := obsmetrics.New(reg)

	customers := customerservice.New(customerservice.Params{
		DB:       conn,
		Log:      log,
		GenID:    node,
		Repo:     customerrepo.Provide(),
		Provider: provider,
		Clock:    clk,
		Metrics:  metrics,
	})
	subscriptions := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Clock:   clk,
		Repo:    subscriptionrepo.Provide(),
		Decoder: hooks,
	})
	checkoutSvc := checkoutservice.NewFactory(checkoutservice.Params{
		Log:           log,
		Customers:     customers,
		Subscriptions: subscriptions,
		Provider:      provider,
		Metrics:       metrics,
	})

	verifications := fulfillmentrepo.Provide()
	reconciler := fulfillmentservice.NewReconciler(fulfillmentservice.Params{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Clock:   clk,
		Repo:    verifications,
		Decoder: hooks,
		Pricing: pricing,
		Metrics: metrics,
	})
	sessionVerifier := checkoutservice.NewVerifier(checkoutservice.VerifierParams{
		Log:      log,
		Provider: provider,
		Recorder: fulfillment.NewVerificationRecorder(reconciler),
	})
	dispatcher, err := webhookservice.NewDispatcher(webhookservice.DispatcherParams{
		Log: log,
		Routes: []webhookdomain.Route{
			fulfillment.NewWebhookRoute(reconciler),
			subscription.NewWebhookRoute(subscriptions),
		},
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	gateway := webhookservice.NewGateway(webhookservice.GatewayParams{
		DB:         conn,
		Log:        log,
		Clock:      clk,
		Repo:       webhookrepo.Provide(),
		Verifier:   hooks,
		Decoder:    hooks,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})

	users := authservice.New(authservice.Params{
		DB:           conn,
		Log:          log,
		Cfg:          cfg,
		GenID:        node,
		Clock:        clk,
		Repo:         authrepo.Provide(),
		Verification: verifications,
	})
	tokens, err := token.New(JWTSecret, "talentgate", time.Hour, clk)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	signupSvc := signup.NewService(signup.Params{
		Log:      log,
		Clock:    clk,
		Stores:   signup.NewMemoryStores(clk, signup.DefaultPendingTTL),
		Verifier: signup.NewLocalVerifier(sessionVerifier),
		Backend:  signup.NewLocalBackend(users, tokens),
		Pricing:  pricing,
	})

	engine := server.NewEngine(observability.Config{}, obsmetrics.NewHTTPMetrics(reg))
	server.NewServer(server.ServerParams{
		Gin:             engine,
		Log:             log,
		CheckoutSvc:     checkoutSvc,
		SessionVerifier: sessionVerifier,
		WebhookGateway:  gateway,
		Authsvc:         users,
		Tokens:          tokens,
		Customers:       customers,
		SignupSvc:       signupSvc,
		CheckoutLimiter: opts.Limiter,
	})

	return &App{
		Engine:   engine,
		DB:       conn,
		Provider: provider,
		Clock:    clk,
		Tokens:   tokens,
		Signup:   signupSvc,
	}
}
