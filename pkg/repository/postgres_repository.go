package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // PostgreSQL driver and array support

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// PostgresAwardRepository implements AwardRepository using PostgreSQL.
type PostgresAwardRepository struct {
	db *sqlx.DB
}

// NewPostgresAwardRepository creates a new PostgreSQL-backed award repository.
func NewPostgresAwardRepository(db *sqlx.DB) *PostgresAwardRepository {
	return &PostgresAwardRepository{db: db}
}

// Exists reports whether an award record exists for the key.
func (r *PostgresAwardRepository) Exists(ctx context.Context, userID, achievementID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM award_records
			WHERE user_id = $1 AND achievement_id = $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, achievementID); err != nil {
		return false, errors.ErrDatabaseError("check award", err)
	}
	return exists, nil
}

// CreateIfAbsent inserts the award record unless the primary key is taken.
func (r *PostgresAwardRepository) CreateIfAbsent(ctx context.Context, userID, achievementID string, awardedAt time.Time) (domain.CreateResult, error) {
	query := `
		INSERT INTO award_records (user_id, achievement_id, awarded_at, earned)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, userID, achievementID, awardedAt)
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
func (r *PostgresAwardRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AwardRecord, error) {
	query := `
		SELECT user_id, achievement_id, awarded_at, earned
		FROM award_records
		WHERE user_id = $1
		ORDER BY awarded_at ASC, achievement_id ASC
	`

	records := []*domain.AwardRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, errors.ErrDatabaseError("list awards", err)
	}
	return records, nil
}

// PostgresCounterRepository implements CounterRepository using PostgreSQL.
type PostgresCounterRepository struct {
	db *sqlx.DB
}

// NewPostgresCounterRepository creates a new PostgreSQL-backed counter repository.
func NewPostgresCounterRepository(db *sqlx.DB) *PostgresCounterRepository {
	return &PostgresCounterRepository{db: db}
}

// Increment adds one to the counter in a single upsert and returns the new count.
func (r *PostgresCounterRepository) Increment(ctx context.Context, achievementID string) (int64, error) {
	query := `
		INSERT INTO holders_counters (achievement_id, count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (achievement_id) DO UPDATE SET
			count = holders_counters.count + 1,
			updated_at = NOW()
		RETURNING count
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, achievementID); err != nil {
		return 0, errors.ErrDatabaseError("increment holders counter", err)
	}
	return count, nil
}

// BatchRead reads all requested counters with one ANY($1) query.
func (r *PostgresCounterRepository) BatchRead(ctx context.Context, achievementIDs []string) (map[string]int64, error) {
	if len(achievementIDs) == 0 {
		return map[string]int64{}, nil
	}

	query := `
		SELECT achievement_id, count
		FROM holders_counters
		WHERE achievement_id = ANY($1)
	`

	var rows []domain.HoldersCounter
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(achievementIDs)); err != nil {
		return nil, errors.ErrDatabaseError("batch read holders counters", err)
	}

	counts := zeroFilled(achievementIDs)
	for _, row := range rows {
		counts[row.AchievementID] = row.Count
	}
	return counts, nil
}
