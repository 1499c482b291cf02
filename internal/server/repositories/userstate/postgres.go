package userstate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/dbx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserSecurityState, error) {
	return r.load(ctx, userID, "")
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, userID string) (*models.UserSecurityState, error) {
	return r.load(ctx, userID, " FOR UPDATE")
}

func (r *PostgresRepository) load(ctx context.Context, userID, suffix string) (*models.UserSecurityState, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_security_states (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query :=
		`SELECT user_id, must_reset, locked_until, lock_count, last_lock_at
		 FROM user_security_states WHERE user_id = $1` + suffix

	var (
		st          models.UserSecurityState
		lockedUntil sql.NullTime
		lastLockAt  sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, userID).Scan(&st.UserID, &st.MustReset, &lockedUntil, &st.LockCount, &lastLockAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lockedUntil.Valid {
		st.LockedUntil = &lockedUntil.Time
	}
	if lastLockAt.Valid {
		st.LastLockAt = &lastLockAt.Time
	}
	return &st, nil
}

func (r *PostgresRepository) Save(ctx context.Context, st *models.UserSecurityState) error {
	query :=
		`UPDATE user_security_states
		 SET must_reset = $2, locked_until = $3, lock_count = $4, last_lock_at = $5
		 WHERE user_id = $1
		 `
	_, err := r.db.ExecContext(ctx, query, st.UserID, st.MustReset, st.LockedUntil, st.LockCount, st.LastLockAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
