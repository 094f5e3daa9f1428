package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/talentgate/internal/auth"
	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/auth/token"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	"github.com/smallbiznis/talentgate/internal/config"
	customerdomain "github.com/smallbiznis/talentgate/internal/customer/domain"
	"github.com/smallbiznis/talentgate/internal/observability"
	obslogger "github.com/smallbiznis/talentgate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/talentgate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/talentgate/internal/observability/tracing"
	"github.com/smallbiznis/talentgate/internal/ratelimit"
	"github.com/smallbiznis/talentgate/internal/signup"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	checkoutSvc     checkoutdomain.Service
	sessionVerifier checkoutdomain.Verifier
	webhookGateway  webhookdomain.Gateway
	authsvc         authdomain.Service
	tokens          *token.Service
	customers       customerdomain.Service
	signupSvc       *signup.Service
	checkoutLimiter *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	CheckoutSvc     checkoutdomain.Service
	SessionVerifier checkoutdomain.Verifier
	WebhookGateway  webhookdomain.Gateway
	Authsvc         authdomain.Service
	Tokens          *token.Service
	Customers       customerdomain.Service     `optional:"true"`
	SignupSvc       *signup.Service            `optional:"true"`
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		checkoutSvc:     p.CheckoutSvc,
		sessionVerifier: p.SessionVerifier,
		webhookGateway:  p.WebhookGateway,
		authsvc:         p.Authsvc,
		tokens:          p.Tokens,
		customers:       p.Customers,
		signupSvc:       p.SignupSvc,
		checkoutLimiter: p.CheckoutLimiter,
	}

	svc.registerCheckoutRoutes()
	svc.registerAuthRoutes()
	svc.registerSignupRoutes()
	svc.registerAccountRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCheckoutRoutes() {
	s.engine.POST("/checkout",
		auth.OptionalBearer(s.tokens, s.log),
		s.CheckoutRateLimit(),
		s.CreateCheckout,
	)
	s.engine.POST("/webhook", s.HandleWebhook)
	s.engine.POST("/verify-session", s.VerifySession)
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/auth")
	group.POST("/signup", s.SignUp)
}

func (s *Server) registerSignupRoutes() {
	if s.signupSvc == nil {
		return
	}
	group := s.engine.Group("/signup")
	group.POST("/pending", s.StagePendingSignup)
	group.POST("/complete", s.CompletePendingSignup)
}

func (s *Server) registerAccountRoutes() {
	if s.customers == nil {
		return
	}
	group := s.engine.Group("/account", auth.RequireBearer(s.tokens, s.log))
	group.DELETE("/billing-customer", s.DeleteBillingCustomer)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
