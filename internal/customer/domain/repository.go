package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindLive(ctx context.Context, db *gorm.DB, localUserID string) (*Mapping, error)
	// InsertIfAbsent reports false when a unique constraint already holds a row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, mapping *Mapping) (bool, error)
	SoftDelete(ctx context.Context, db *gorm.DB, localUserID string, at time.Time) (bool, error)
}
