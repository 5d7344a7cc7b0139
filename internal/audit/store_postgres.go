package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "veritas/pkg/domain"
)

// PostgresStore appends audit events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var userID, actorID any
	if !event.UserID.IsNil() {
		userID = event.UserID.String()
	}
	if !event.ActorID.IsNil() {
		actorID = event.ActorID.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (category, action, user_id, actor_id, subject, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(event.Category), event.Action, userID, actorID, event.Subject, event.RequestID, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, user_id, actor_id, subject, request_id, created_at
		FROM audit_events
		WHERE user_id = $1
		ORDER BY created_at
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event            Event
			rawCategory      string
			rawUser, rawActr sql.NullString
		)
		if err := rows.Scan(&rawCategory, &event.Action, &rawUser, &rawActr,
			&event.Subject, &event.RequestID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = EventCategory(rawCategory)
		if rawUser.Valid {
			if parsed, err := id.ParseUserID(rawUser.String); err == nil {
				event.UserID = parsed
			}
		}
		if rawActr.Valid {
			if parsed, err := id.ParseUserID(rawActr.String); err == nil {
				event.ActorID = parsed
			}
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
