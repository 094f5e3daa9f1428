package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentgate/internal/auth"
	"go.uber.org/zap"
)

// DeleteBillingCustomer retires the caller's customer mapping. The next
// checkout creates a fresh provider customer.
func (s *Server) DeleteBillingCustomer(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	if err := s.customers.SoftDelete(c.Request.Context(), caller.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("customer mapping retired", zap.String("user_id", caller.UserID))
	c.Status(http.StatusNoContent)
}
