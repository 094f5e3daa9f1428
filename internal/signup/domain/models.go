package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PendingSignupKey is the fixed name under which staged data is stored.
const PendingSignupKey = "pendingSignup"

// PendingSignupData is the signup form captured before the verification
// payment. It is never persisted server side beyond the pending store.
type PendingSignupData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

func (d PendingSignupData) Validate() error {
	switch {
	case strings.TrimSpace(d.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidPendingData)
	case d.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidPendingData)
	case strings.TrimSpace(d.UserType) == "":
		return fmt.Errorf("%w: user type is required", ErrInvalidPendingData)
	}
	return nil
}

type State string

const (
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Outcome is the terminal result of a completion attempt.
type Outcome struct {
	State         State         `json:"state"`
	Err           error         `json:"-"`
	UserID        string        `json:"user_id,omitempty"`
	Token         string        `json:"-"`
	RedirectPath  string        `json:"redirect_path,omitempty"`
	RedirectAfter time.Duration `json:"-"`
}

// SessionVerification is the server-side view of a checkout session.
type SessionVerification struct {
	OK          bool              `json:"ok"`
	Email       string            `json:"email,omitempty"`
	AmountTotal int64             `json:"amount_total,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Account is what the identity backend returns for a created user.
type Account struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type Store interface {
	Save(ctx context.Context, data PendingSignupData) error
	// Load returns ErrNoPendingSignup when nothing is staged.
	Load(ctx context.Context) (*Pending, error)
	Clear(ctx context.Context) error
}

type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionID string) (SessionVerification, error)
}

type IdentityBackend interface {
	SignUp(ctx context.Context, data PendingSignupData) (Account, error)
}

type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

var (
	ErrNoPendingSignup     = errors.New("pending_signup_not_found")
	ErrPendingConsumed     = errors.New("pending_signup_consumed")
	ErrPendingDiscarded    = errors.New("pending_signup_discarded")
	ErrInvalidPendingData  = errors.New("invalid_pending_signup")
	ErrPaymentNotConfirmed = errors.New("payment_not_confirmed")
	ErrNotRedirectable     = errors.New("outcome_not_successful")
)

// AccountCreationError reports an identity backend rejection after the
// payment was confirmed. The user must restart signup.
type AccountCreationError struct {
	Err error
}

func (e *AccountCreationError) Error() string {
	return fmt.Sprintf("account creation failed: %v", e.Err)
}

func (e *AccountCreationError) Unwrap() error {
	return e.Err
}
