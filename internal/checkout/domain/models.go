package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
)

// CategoryVerification is the only category that may be bought anonymously.
const CategoryVerification = "verification"

// Request is a checkout attempt as submitted by the caller.
type Request struct {
	PriceID    string            `json:"price_id" validate:"required"`
	Mode       string            `json:"mode" validate:"required,oneof=payment subscription"`
	SuccessURL string            `json:"success_url" validate:"required,http_url"`
	CancelURL  string            `json:"cancel_url" validate:"required,http_url"`
	Category   string            `json:"category" validate:"required"`
	UserID     string            `json:"user_id,omitempty"`
	UserType   string            `json:"user_type,omitempty"`
	Email      string            `json:"email,omitempty" validate:"omitempty,email"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Caller is the identity established by the transport, if any.
type Caller struct {
	UserID string
}

func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.UserID) != ""
}

// Session is what the caller needs to redirect to the hosted checkout.
type Session struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	AttemptID string `json:"-"`
	Strategy  string `json:"-"`
}

// Verification is the server-side confirmation of a paid one-time session.
type Verification struct {
	OK          bool              `json:"ok"`
	Email       string            `json:"email,omitempty"`
	AmountTotal int64             `json:"amount_total,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ValidationError names the first offending request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var (
	ErrAuthenticationRequired = errors.New("authentication_required")
	ErrSessionNotPaid         = errors.New("session_not_paid")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims fields, lower-cases the email and maps mode aliases.
func (r Request) Normalize() Request {
	r.PriceID = strings.TrimSpace(r.PriceID)
	r.Mode = NormalizeMode(r.Mode)
	r.SuccessURL = strings.TrimSpace(r.SuccessURL)
	r.CancelURL = strings.TrimSpace(r.CancelURL)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.UserID = strings.TrimSpace(r.UserID)
	r.UserType = strings.TrimSpace(r.UserType)
	r.Email = paymentdomain.NormalizeEmail(r.Email)
	return r
}

func NormalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "payment", "one_time":
		return string(paymentdomain.ModePayment)
	case "subscription", "recurring":
		return string(paymentdomain.ModeSubscription)
	default:
		return strings.TrimSpace(mode)
	}
}

// Validate expects a normalized request.
func (r Request) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toValidationError(fieldErrs[0])
		}
		return &ValidationError{Field: "body", Code: "invalid", Message: err.Error()}
	}
	if r.Category == CategoryVerification && r.Mode != string(paymentdomain.ModePayment) {
		return &ValidationError{
			Field:   "mode",
			Code:    "invalid_for_category",
			Message: "verification checkout must be a one-time payment",
		}
	}
	return nil
}

func (r Request) IsVerification() bool {
	return r.Category == CategoryVerification
}

func toValidationError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Code: "required", Message: field + " is required"}
	case "oneof":
		return &ValidationError{Field: field, Code: "invalid_value", Message: field + " must be one of: " + fe.Param()}
	case "http_url":
		return &ValidationError{Field: field, Code: "invalid_url", Message: field + " must be an absolute http(s) URL"}
	case "email":
		return &ValidationError{Field: field, Code: "invalid_email", Message: field + " must be a valid email"}
	default:
		return &ValidationError{Field: field, Code: "invalid", Message: field + " is invalid"}
	}
}
