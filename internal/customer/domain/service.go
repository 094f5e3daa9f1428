package domain

import (
	"context"
	"errors"
)

type ResolveRequest struct {
	LocalUserID    string
	Email          string
	Name           string
	IdempotencyKey string
}

type PendingCustomerRequest struct {
	Email          string
	Name           string
	IdempotencyKey string
}

type Service interface {
	// Resolve returns the live mapping for a user, creating the provider
	// customer and the mapping on first use.
	Resolve(context.Context, ResolveRequest) (Mapping, error)
	// CreatePendingCustomer creates an unmapped provider customer for a
	// signup that has no local account yet.
	CreatePendingCustomer(context.Context, PendingCustomerRequest) (string, error)
	SoftDelete(ctx context.Context, localUserID string) error
}

var (
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrNotFound      = errors.New("not_found")
	ErrMappingLost   = errors.New("customer_mapping_conflict")
)
