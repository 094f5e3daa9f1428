package repository

import (
	"context"

	"github.com/smallbiznis/talentgate/internal/auth/domain"
	"github.com/smallbiznis/talentgate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, user *domain.User) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO users (id, email, password_hash, name, user_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.UserType,
		user.CreatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *repo) FindByEmail(ctx context.Context, conn *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := conn.WithContext(ctx).Raw(
		`SELECT id, email, password_hash, name, user_type, created_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}
