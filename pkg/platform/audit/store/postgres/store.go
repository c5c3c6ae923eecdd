package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"profilecheck/pkg/domain"
	audit "profilecheck/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           UUID PRIMARY KEY,
	category     TEXT NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL,
	account_id   TEXT NOT NULL,
	actor_id     TEXT NOT NULL DEFAULT '',
	action       TEXT NOT NULL,
	decision     TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	amount       TEXT NOT NULL DEFAULT '',
	operation_id TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	client_ip    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_account_idx ON audit_events (account_id, timestamp);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append inserts an audit event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, account_id, actor_id, action,
			decision, reason, amount, operation_id, request_id, client_ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		event.AccountID.String(),
		event.ActorID,
		event.Action,
		event.Decision,
		event.Reason,
		event.Amount,
		event.OperationID,
		event.RequestID,
		event.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByAccount returns events for an account, oldest first.
func (s *Store) ListByAccount(ctx context.Context, account domain.AccountID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, account_id, actor_id, action,
			   decision, reason, amount, operation_id, request_id, client_ip
		FROM audit_events
		WHERE account_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			acct     string
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&acct,
			&event.ActorID,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.Amount,
			&event.OperationID,
			&event.RequestID,
			&event.ClientIP,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.AccountID = domain.AccountID(acct)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
