package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/internal/auth/token"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	"go.uber.org/zap"
)

const (
	callerContextKey = "auth.caller"
	bearerPrefix     = "bearer "
)

// OptionalBearer attaches the caller identified by a valid bearer token.
// Requests without one, or with an invalid one, continue anonymously.
func OptionalBearer(tokens *token.Service, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("auth.middleware")
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" || tokens == nil {
			c.Next()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Debug("ignoring invalid bearer token", zap.Error(err))
			c.Next()
			return
		}

		c.Set(callerContextKey, checkoutdomain.Caller{UserID: claims.Subject})
		c.Next()
	}
}

// RequireBearer rejects requests without a valid bearer token.
func RequireBearer(tokens *token.Service, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("auth.middleware")
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" || tokens == nil {
			_ = c.Error(authdomain.ErrInvalidToken)
			c.Abort()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Debug("rejecting invalid bearer token", zap.Error(err))
			_ = c.Error(authdomain.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(callerContextKey, checkoutdomain.Caller{UserID: claims.Subject})
		c.Next()
	}
}

// CallerFromContext returns the caller set by OptionalBearer, or the zero
// Caller for anonymous requests.
func CallerFromContext(c *gin.Context) checkoutdomain.Caller {
	if v, ok := c.Get(callerContextKey); ok {
		if caller, ok := v.(checkoutdomain.Caller); ok {
			return caller
		}
	}
	return checkoutdomain.Caller{}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
