// Package dbtest opens isolated SQLite databases carrying the service schema.
package dbtest

import (
	"testing"

	"github.com/smallbiznis/talentgate/pkg/db"
	"gorm.io/gorm"
)

// Schema mirrors the postgres migrations in SQLite syntax.
var Schema = []string{
	`CREATE TABLE customer_mappings (
		id INTEGER PRIMARY KEY,
		local_user_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		provider_customer_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_customer_mappings_live_user ON customer_mappings (local_user_id) WHERE deleted_at IS NULL`,
	`CREATE TABLE subscriptions (
		id INTEGER PRIMARY KEY,
		provider_customer_id TEXT NOT NULL UNIQUE,
		price_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		provider_subscription_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_event_at DATETIME
	)`,
	`CREATE TABLE webhook_events (
		event_id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		event_type TEXT NOT NULL,
		received_at DATETIME NOT NULL,
		processed_at DATETIME,
		payload TEXT NOT NULL
	)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		payment_intent_id TEXT,
		provider_customer_id TEXT,
		email TEXT NOT NULL DEFAULT '',
		amount_total INTEGER NOT NULL,
		currency TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE verification_emails (
		email TEXT PRIMARY KEY,
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		verified_at DATETIME,
		last_session_id TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		user_type TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
}

// New returns a migrated in-memory database.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	Migrate(t, conn)
	return conn
}

// Migrate applies Schema to conn.
func Migrate(t testing.TB, conn *gorm.DB) {
	t.Helper()
	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
}

// Count returns the number of rows in table.
func Count(t testing.TB, conn *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := conn.Table(table).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
