package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/talentgate/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLive(ctx context.Context, db *gorm.DB, localUserID string) (*domain.Mapping, error) {
	var mapping domain.Mapping
	err := db.WithContext(ctx).Raw(
		`SELECT id, local_user_id, provider, provider_customer_id, email, created_at, deleted_at
		 FROM customer_mappings
		 WHERE local_user_id = ? AND deleted_at IS NULL`,
		localUserID,
	).Scan(&mapping).Error
	if err != nil {
		return nil, err
	}
	if mapping.ID == 0 {
		return nil, nil
	}
	return &mapping, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, mapping *domain.Mapping) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO customer_mappings (id, local_user_id, provider, provider_customer_id, email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		mapping.ID,
		mapping.LocalUserID,
		mapping.Provider,
		mapping.ProviderCustomerID,
		mapping.Email,
		mapping.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, localUserID string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE customer_mappings SET deleted_at = ?
		 WHERE local_user_id = ? AND deleted_at IS NULL`,
		at,
		localUserID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
