package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentgate/internal/auth"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	"github.com/smallbiznis/talentgate/internal/observability/logger"
	"go.uber.org/zap"
)

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkoutdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.checkoutSvc.Create(c.Request.Context(), auth.CallerFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkoutResponse{SessionID: session.SessionID, URL: session.URL})
}

// CheckoutRateLimit applies the per-client token bucket. Limiter failures
// let the request through.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.checkoutLimiter == nil || !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.checkoutLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("checkout rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			logger.FromContext(ctx).Warn("checkout rate limit exceeded",
				zap.String("client_ip", strings.TrimSpace(c.ClientIP())),
			)
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
