// Package postgres provides PostgreSQL implementations of the repository
// interfaces.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newswatch/internal/observability/metrics"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mustJSON marshals collection fields for JSONB columns. nil slices and
// maps marshal to valid empty JSON, so failures only happen on types the
// compiler already rules out.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}

func fromJSON(data []byte, dst any, field string) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}

// observe records the duration of a repository operation.
// Usage: defer observe("article_create", time.Now())
func observe(operation string, start time.Time) {
	metrics.RecordDBQuery(operation, time.Since(start))
}
