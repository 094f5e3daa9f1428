package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
)

type verifySessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) VerifySession(c *gin.Context) {
	var req verifySessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	verification, err := s.sessionVerifier.Verify(c.Request.Context(), sessionID)
	if errors.Is(err, paymentdomain.ErrSessionNotFound) {
		// An unknown session is reported like any other unpaid one.
		err = checkoutdomain.ErrSessionNotPaid
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verification)
}
