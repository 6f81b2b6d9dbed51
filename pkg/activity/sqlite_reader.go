package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// SQLiteAggregateReader implements AggregateReader over the activity_records table
// using SQLite's JSON1 functions. Attributes are stored as JSON text.
type SQLiteAggregateReader struct {
	db *sqlx.DB
}

// NewSQLiteAggregateReader creates a new SQLite-backed aggregate reader.
func NewSQLiteAggregateReader(db *sqlx.DB) *SQLiteAggregateReader {
	return &SQLiteAggregateReader{db: db}
}

// Aggregate runs a single COUNT or SUM query for the user and source.
func (r *SQLiteAggregateReader) Aggregate(ctx context.Context, userID string, source domain.ActivitySource, mode domain.AggregationMode) (int64, error) {
	where, args := sqliteFilterClause(userID, source)

	switch mode {
	case domain.AggregationCountMatching:
		var count int64
		query := "SELECT COUNT(*) FROM activity_records WHERE " + where
		if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
			return 0, errors.ErrAggregateFailed(source.Collection, err)
		}
		return count, nil

	case domain.AggregationSumAttribute:
		path := "$." + source.Attribute
		query := `
			SELECT COALESCE(SUM(
				CASE WHEN json_type(attributes, ?) IN ('integer', 'real')
					THEN json_extract(attributes, ?)
					ELSE 0
				END
			), 0)
			FROM activity_records
			WHERE ` + where
		var sum float64
		sumArgs := append([]any{path, path}, args...)
		if err := r.db.GetContext(ctx, &sum, query, sumArgs...); err != nil {
			return 0, errors.ErrAggregateFailed(source.Collection, err)
		}
		return truncateSum(sum), nil

	default:
		return 0, errors.ErrValidationFailed("aggregation_mode", fmt.Sprintf("unsupported mode %q", mode))
	}
}

// Record inserts an activity record.
func (r *SQLiteAggregateReader) Record(ctx context.Context, record *domain.ActivityRecord) error {
	attrs, err := json.Marshal(nonNilAttributes(record.Attributes))
	if err != nil {
		return errors.ErrValidationFailed("attributes", err.Error())
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activity_records (id, collection, user_id, attributes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, id, record.Collection, record.UserID, string(attrs), createdAt); err != nil {
		return errors.ErrDatabaseError("record activity", err)
	}
	return nil
}

// sqliteFilterClause builds the WHERE clause for a source. Filter keys are
// sorted so the generated SQL is stable. Attribute names are validated by the
// config validator; JSON paths are still passed as bound parameters.
func sqliteFilterClause(userID string, source domain.ActivitySource) (string, []any) {
	clauses := []string{"user_id = ?", "collection = ?"}
	args := []any{userID, source.Collection}

	keys := make([]string, 0, len(source.Filter))
	for k := range source.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := "$." + key
		// json_extract maps true/false to 1/0, so every comparison is
		// guarded by json_type to keep booleans, numbers and strings apart.
		// The config validator admits only these three filter value types.
		v := source.Filter[key]
		if b, ok := v.(bool); ok {
			want := "false"
			if b {
				want = "true"
			}
			clauses = append(clauses, "json_type(attributes, ?) = ?")
			args = append(args, path, want)
			continue
		}

		if _, numeric := numericValue(v); numeric {
			clauses = append(clauses, "json_type(attributes, ?) IN ('integer', 'real') AND json_extract(attributes, ?) = ?")
		} else {
			clauses = append(clauses, "json_type(attributes, ?) = 'text' AND json_extract(attributes, ?) = ?")
		}
		args = append(args, path, path, filterValueSQL(v))
	}

	return strings.Join(clauses, " AND "), args
}
