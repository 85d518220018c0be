package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists audit events to the audit_events table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("audit: db required")
	}
	return &PostgresStore{db: db}
}

// Insert writes one event. Events are append-only; there is no update path.
func (s *PostgresStore) Insert(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			id, event_type, request_id, criteria,
			outcome, result_count, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		event.ID,
		string(event.EventType),
		event.RequestID,
		event.Criteria,
		event.Outcome,
		event.ResultCount,
		event.DurationMS,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}
