package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// SQLiteAwardRepository implements AwardRepository using SQLite.
type SQLiteAwardRepository struct {
	db *sqlx.DB
}

// NewSQLiteAwardRepository creates a new SQLite-backed award repository.
func NewSQLiteAwardRepository(db *sqlx.DB) *SQLiteAwardRepository {
	return &SQLiteAwardRepository{db: db}
}

// Exists reports whether an award record exists for the key.
func (r *SQLiteAwardRepository) Exists(ctx context.Context, userID, achievementID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM award_records WHERE user_id = ? AND achievement_id = ?)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, achievementID); err != nil {
		return false, errors.ErrDatabaseError("check award", err)
	}
	return exists, nil
}

// CreateIfAbsent inserts the award record unless the primary key is taken.
func (r *SQLiteAwardRepository) CreateIfAbsent(ctx context.Context, userID, achievementID string, awardedAt time.Time) (domain.CreateResult, error) {
	query := `
		INSERT INTO award_records (user_id, achievement_id, awarded_at, earned)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, userID, achievementID, awardedAt.UTC())
	if err != nil {
		return 0, errors.ErrDatabaseError("create award", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.ErrDatabaseError("create award rows affected", err)
	}
	return createResultFromRows(n), nil
}

// ListByUser returns the user's award records ordered by awarded_at.
func (r *SQLiteAwardRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AwardRecord, error) {
	query := `
		SELECT user_id, achievement_id, awarded_at, earned
		FROM award_records
		WHERE user_id = ?
		ORDER BY awarded_at ASC, achievement_id ASC
	`

	records := []*domain.AwardRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, errors.ErrDatabaseError("list awards", err)
	}
	return records, nil
}

// SQLiteCounterRepository implements CounterRepository using SQLite.
type SQLiteCounterRepository struct {
	db *sqlx.DB
}

// NewSQLiteCounterRepository creates a new SQLite-backed counter repository.
func NewSQLiteCounterRepository(db *sqlx.DB) *SQLiteCounterRepository {
	return &SQLiteCounterRepository{db: db}
}

// Increment adds one to the counter in a single upsert and returns the new count.
func (r *SQLiteCounterRepository) Increment(ctx context.Context, achievementID string) (int64, error) {
	query := `
		INSERT INTO holders_counters (achievement_id, count, updated_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (achievement_id) DO UPDATE SET
			count = holders_counters.count + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING count
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, achievementID); err != nil {
		return 0, errors.ErrDatabaseError("increment holders counter", err)
	}
	return count, nil
}

// BatchRead reads all requested counters with one IN (...) query.
func (r *SQLiteCounterRepository) BatchRead(ctx context.Context, achievementIDs []string) (map[string]int64, error) {
	if len(achievementIDs) == 0 {
		return map[string]int64{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT achievement_id, count
		FROM holders_counters
		WHERE achievement_id IN (?)
	`, achievementIDs)
	if err != nil {
		return nil, errors.ErrDatabaseError("batch read holders counters", err)
	}

	var rows []domain.HoldersCounter
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.ErrDatabaseError("batch read holders counters", err)
	}

	counts := zeroFilled(achievementIDs)
	for _, row := range rows {
		counts[row.AchievementID] = row.Count
	}
	return counts, nil
}
