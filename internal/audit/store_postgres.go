package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore appends audit events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, action, occurred_at, review_item_id,
			subject, route, score, actor, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		event.ID,
		event.Action,
		event.OccurredAt,
		event.ReviewItemID,
		event.Subject,
		event.Route,
		event.Score,
		event.Actor,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, occurred_at, review_item_id,
		       subject, route, score, actor, reason, request_id
		FROM audit_events
		WHERE review_item_id = $1
		ORDER BY occurred_at, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, occurred_at, review_item_id,
		       subject, route, score, actor, reason, request_id
		FROM audit_events
		ORDER BY occurred_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event  Event
			itemID uuid.NullUUID
			score  sql.NullFloat64
		)
		err := rows.Scan(
			&event.ID,
			&event.Action,
			&event.OccurredAt,
			&itemID,
			&event.Subject,
			&event.Route,
			&score,
			&event.Actor,
			&event.Reason,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if itemID.Valid {
			id := itemID.UUID
			event.ReviewItemID = &id
		}
		if score.Valid {
			v := score.Float64
			event.Score = &v
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
