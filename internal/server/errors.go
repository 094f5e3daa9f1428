package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/talentgate/internal/auth/domain"
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/talentgate/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
	"github.com/smallbiznis/talentgate/internal/signup"
	signupdomain "github.com/smallbiznis/talentgate/internal/signup/domain"
	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, checkoutdomain.ErrAuthenticationRequired),
		errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "authentication required",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid signature",
		}
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_payload",
			Message: "invalid payload",
		}
	case errors.Is(err, checkoutdomain.ErrSessionNotPaid),
		errors.Is(err, signupdomain.ErrPaymentNotConfirmed):
		return http.StatusBadRequest, errorPayload{
			Type:    "session_not_paid",
			Message: "session not paid",
		}
	case errors.Is(err, signupdomain.ErrNoPendingSignup),
		errors.Is(err, signupdomain.ErrPendingConsumed),
		errors.Is(err, signupdomain.ErrPendingDiscarded):
		return http.StatusBadRequest, errorPayload{
			Type:    "pending_signup_missing",
			Message: "no pending signup, restart signup",
		}
	case errors.Is(err, authdomain.ErrEmailNotVerified):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "email not verified",
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrSessionNotFound),
		errors.Is(err, customerdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, paymentdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, webhookdomain.ErrTransientPersistence),
		errors.Is(err, paymentdomain.ErrProviderUnavailable):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// asValidationErrors folds the domain validation errors into the response
// shape.
func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}

	var checkoutErr *checkoutdomain.ValidationError
	if errors.As(err, &checkoutErr) && checkoutErr != nil {
		return &ValidationErrors{Errors: []ValidationError{{
			Field:   checkoutErr.Field,
			Code:    checkoutErr.Code,
			Message: checkoutErr.Message,
		}}}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return invalidRequestError().(*ValidationErrors)
	case errors.Is(err, authdomain.ErrInvalidEmail):
		return newValidationError("email", "invalid_email", "email is invalid").(*ValidationErrors)
	case errors.Is(err, signupdomain.ErrInvalidPendingData):
		return newValidationError("pending_signup", "invalid_value", err.Error()).(*ValidationErrors)
	case errors.Is(err, authdomain.ErrInvalidPassword):
		return newValidationError("password", "required", "password is required").(*ValidationErrors)
	case errors.Is(err, signup.ErrMissingTabID):
		return newValidationError("tab_id", "required", "X-Tab-Id header is required").(*ValidationErrors)
	}
	return nil
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
