package honeywords

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/dbx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ReplaceSet(ctx context.Context, set *models.HoneywordSet) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM honeyword_sets WHERE user_id = $1`, set.UserID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if set.ID == "" {
		set.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO honeyword_sets (id, user_id, k, algorithm_version)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `
	if err := r.db.QueryRowContext(ctx, query, set.ID, set.UserID, set.K, set.AlgorithmVersion).Scan(&set.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, h := range set.Hashes {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO honeyword_hashes (set_id, idx, password_hash) VALUES ($1, $2, $3)`,
			set.ID, h.Index, h.PasswordHash)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetSet(ctx context.Context, userID string) (*models.HoneywordSet, error) {
	query :=
		`SELECT id, user_id, k, algorithm_version, created_at
		 FROM honeyword_sets WHERE user_id = $1
		 `
	set := &models.HoneywordSet{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&set.ID, &set.UserID, &set.K, &set.AlgorithmVersion, &set.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, password_hash FROM honeyword_hashes WHERE set_id = $1 ORDER BY idx`, set.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h models.HoneywordHash
		if err := rows.Scan(&h.Index, &h.PasswordHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		set.Hashes = append(set.Hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return set, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM honeyword_sets WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) DeleteSet(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM honeyword_sets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
