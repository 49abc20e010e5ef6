package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"autopost/domain/model"
	"autopost/domain/repository"
)

// PostHistoryRepositoryPG keeps history entries in PostgreSQL. There is no native expiry,
// so the janitor purges rows with DeleteOlderThan.
type PostHistoryRepositoryPG struct {
	db *sql.DB
}

func NewPostHistoryRepositoryPG(db *sql.DB) repository.IPostHistory {
	return &PostHistoryRepositoryPG{db: db}
}

func (r *PostHistoryRepositoryPG) Create(ctx context.Context, entry *model.PostHistory) error {
	q := `INSERT INTO instant_group_post_history (job_id, owner, post_type, total_groups, success_count, failure_count, total_elapsed_seconds, success_rate, average_seconds_per_group, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	stmt, err := r.db.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var id int64
	err = stmt.QueryRowContext(ctx,
		entry.JobID, entry.Owner, string(entry.ContentKind), entry.TargetCount,
		entry.SuccessCount, entry.FailureCount, entry.TotalElapsedSeconds,
		entry.SuccessRate, entry.AverageSecondsPerTarget, entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		return err
	}
	entry.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *PostHistoryRepositoryPG) ListByOwner(ctx context.Context, owner string, limit int) ([]*model.PostHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, job_id, owner, post_type, total_groups, success_count, failure_count, total_elapsed_seconds, success_rate, average_seconds_per_group, created_at
	FROM instant_group_post_history
	WHERE owner = $1
	ORDER BY created_at DESC
	LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.PostHistory, 0)
	for rows.Next() {
		var (
			id   int64
			kind string
		)
		entry := &model.PostHistory{}
		if err := rows.Scan(&id, &entry.JobID, &entry.Owner, &kind, &entry.TargetCount,
			&entry.SuccessCount, &entry.FailureCount, &entry.TotalElapsedSeconds,
			&entry.SuccessRate, &entry.AverageSecondsPerTarget, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.ID = strconv.FormatInt(id, 10)
		entry.ContentKind = model.ContentKind(kind)
		list = append(list, entry)
	}
	return list, rows.Err()
}

func (r *PostHistoryRepositoryPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instant_group_post_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
