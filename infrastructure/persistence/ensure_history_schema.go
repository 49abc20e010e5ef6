package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createHistoryTable = `CREATE TABLE IF NOT EXISTS instant_group_post_history (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT NOT NULL,
	owner TEXT NOT NULL,
	post_type TEXT NOT NULL,
	total_groups INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	total_elapsed_seconds BIGINT NOT NULL,
	success_rate TEXT NOT NULL,
	average_seconds_per_group TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

const createHistoryIndex = `CREATE INDEX IF NOT EXISTS idx_group_post_history_owner_created
	ON instant_group_post_history (owner, created_at DESC)`

// EnsureHistorySchema creates the history table used by the postgres backend if it is missing.
func EnsureHistorySchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, ddl := range []string{createHistoryTable, createHistoryIndex} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure history schema failed: %w", err)
		}
	}
	return nil
}
