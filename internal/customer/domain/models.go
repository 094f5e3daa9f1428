package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Mapping links a local account to its payment-provider customer.
type Mapping struct {
	ID                 snowflake.ID `json:"id"`
	LocalUserID        string       `json:"local_user_id"`
	Provider           string       `json:"provider"`
	ProviderCustomerID string       `json:"provider_customer_id"`
	Email              string       `json:"email"`
	CreatedAt          time.Time    `json:"created_at"`
	DeletedAt          *time.Time   `json:"deleted_at,omitempty"`
}
