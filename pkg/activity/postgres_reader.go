package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// PostgresAggregateReader implements AggregateReader over the activity_records table.
// Attributes are JSONB; the filter is applied with JSONB containment.
type PostgresAggregateReader struct {
	db *sqlx.DB
}

// NewPostgresAggregateReader creates a new PostgreSQL-backed aggregate reader.
func NewPostgresAggregateReader(db *sqlx.DB) *PostgresAggregateReader {
	return &PostgresAggregateReader{db: db}
}

// Aggregate runs a single COUNT or SUM query for the user and source.
func (r *PostgresAggregateReader) Aggregate(ctx context.Context, userID string, source domain.ActivitySource, mode domain.AggregationMode) (int64, error) {
	filter, err := marshalFilter(source.Filter)
	if err != nil {
		return 0, errors.ErrValidationFailed("activity_source.filter", err.Error())
	}

	var value int64
	switch mode {
	case domain.AggregationCountMatching:
		query := `
			SELECT COUNT(*)
			FROM activity_records
			WHERE user_id = $1 AND collection = $2 AND attributes @> $3::jsonb
		`
		err = r.db.GetContext(ctx, &value, query, userID, source.Collection, filter)

	case domain.AggregationSumAttribute:
		// Non-numeric and missing attributes contribute 0 instead of failing the cast.
		query := `
			SELECT COALESCE(TRUNC(SUM(
				CASE WHEN jsonb_typeof(attributes -> $4::text) = 'number'
					THEN (attributes ->> $4::text)::numeric
					ELSE 0
				END
			)), 0)::BIGINT
			FROM activity_records
			WHERE user_id = $1 AND collection = $2 AND attributes @> $3::jsonb
		`
		err = r.db.GetContext(ctx, &value, query, userID, source.Collection, filter, source.Attribute)

	default:
		return 0, errors.ErrValidationFailed("aggregation_mode", fmt.Sprintf("unsupported mode %q", mode))
	}

	if err != nil {
		return 0, errors.ErrAggregateFailed(source.Collection, err)
	}
	return value, nil
}

// Record inserts an activity record.
func (r *PostgresAggregateReader) Record(ctx context.Context, record *domain.ActivityRecord) error {
	attrs, err := json.Marshal(nonNilAttributes(record.Attributes))
	if err != nil {
		return errors.ErrValidationFailed("attributes", err.Error())
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO activity_records (id, collection, user_id, attributes, created_at)
		VALUES ($1, $2, $3, $4::jsonb, COALESCE($5, NOW()))
	`
	if _, err := r.db.ExecContext(ctx, query, id, record.Collection, record.UserID, string(attrs), nullableTime(record)); err != nil {
		return errors.ErrDatabaseError("record activity", err)
	}
	return nil
}

// marshalFilter renders the filter as a JSON object; nil becomes {} which matches every row.
func marshalFilter(filter map[string]any) (string, error) {
	data, err := json.Marshal(nonNilAttributes(filter))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nonNilAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}

func nullableTime(record *domain.ActivityRecord) any {
	if record.CreatedAt.IsZero() {
		return nil
	}
	return record.CreatedAt
}
