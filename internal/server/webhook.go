package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBodyBytes = 65536
	stripeSignatureHdr  = "Stripe-Signature"
)

func (s *Server) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, newValidationError("body", "too_large", "payload too large"))
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.webhookGateway.Ingest(c.Request.Context(), payload, c.GetHeader(stripeSignatureHdr))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"duplicate": result.Duplicate,
	})
}
