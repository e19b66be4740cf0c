package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// ActivityRepository appends to and reads the admin activity log. There
// is no update or delete.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, user_id, user_name, action_type, description, target_id, target_type, timestamp`

func scanActivity(row rowScanner) (types.UserActionLog, error) {
	var entry types.UserActionLog
	var target sql.NullInt64
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.UserName,
		&entry.ActionType,
		&entry.Description,
		&target,
		&entry.TargetType,
		&entry.Timestamp,
	)
	if err != nil {
		return types.UserActionLog{}, mapError(err)
	}
	entry.TargetID = int(target.Int64)
	return entry, nil
}

func (r *ActivityRepository) Append(ctx context.Context, entry types.UserActionLog) (types.UserActionLog, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var target sql.NullInt64
	if entry.TargetID > 0 {
		target = sql.NullInt64{Int64: int64(entry.TargetID), Valid: true}
	}

	const query = `
		INSERT INTO user_action_logs (user_id, user_name, action_type, description, target_id, target_type, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.UserName,
		entry.ActionType,
		entry.Description,
		target,
		entry.TargetType,
		entry.Timestamp,
	).Scan(&entry.ID); err != nil {
		return types.UserActionLog{}, err
	}
	return entry, nil
}

func (r *ActivityRepository) List(ctx context.Context) ([]types.UserActionLog, error) {
	const query = `SELECT ` + activityColumns + ` FROM user_action_logs ORDER BY timestamp DESC, id DESC`
	return r.query(ctx, query)
}

func (r *ActivityRepository) ListByType(ctx context.Context, action types.ActionType) ([]types.UserActionLog, error) {
	const query = `SELECT ` + activityColumns + ` FROM user_action_logs WHERE action_type = $1 ORDER BY timestamp DESC, id DESC`
	return r.query(ctx, query, action)
}

func (r *ActivityRepository) query(ctx context.Context, query string, args ...any) ([]types.UserActionLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.UserActionLog, 0)
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
