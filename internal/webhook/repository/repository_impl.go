package repository

import (
	"context"
	"time"

	webhookdomain "github.com/smallbiznis/talentgate/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() webhookdomain.Repository {
	return &repo{}
}

// Insert relies on the event_id primary key; zero affected rows means the
// event was delivered before.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *webhookdomain.Event) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (event_id, provider, event_type, received_at, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.EventID,
		event.Provider,
		event.EventType,
		event.ReceivedAt,
		event.Payload,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, eventID string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events SET processed_at = ? WHERE event_id = ?`,
		at,
		eventID,
	).Error
}
