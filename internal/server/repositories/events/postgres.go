package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/dbx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_events (id, user_id, username, outcome, created_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `
	userID := sql.NullString{String: e.UserID, Valid: e.UserID != ""}

	_, err := r.db.ExecContext(ctx, query, e.ID, userID, e.UserName, string(e.Outcome), e.CreatedAt, e.IPAddress, e.UserAgent)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]models.AuditEvent, error) {
	query :=
		`SELECT id, user_id, username, outcome, created_at, ip_address, user_agent
		 FROM audit_events WHERE created_at >= $1
		 ORDER BY created_at, id`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var (
			e       models.AuditEvent
			userID  sql.NullString
			outcome string
		)
		if err := rows.Scan(&e.ID, &userID, &e.UserName, &outcome, &e.CreatedAt, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.UserID = userID.String
		e.Outcome = models.Outcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
