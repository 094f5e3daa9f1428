// Package domain contains core types for the identity backend.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a provisioned local account.
type User struct {
	ID           snowflake.ID `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Name         string       `json:"name"`
	UserType     string       `json:"user_type"`
	CreatedAt    time.Time    `json:"created_at"`
}
