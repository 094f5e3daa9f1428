package domain

import "context"

type Service interface {
	// SignUp creates an account. When verification is enforced the email
	// must have a paid verification on record.
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
}

type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	UserType string
}
