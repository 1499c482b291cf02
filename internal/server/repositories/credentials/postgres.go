package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

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

func (r *PostgresRepository) ReplaceSet(ctx context.Context, set *models.CredentialSet) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM amnesia_sets WHERE user_id = $1`, set.UserID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if set.ID == "" {
		set.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO amnesia_sets (id, user_id, k, p_mark, p_remark, algorithm_version)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `
	err := r.db.QueryRowContext(ctx, query,
		set.ID, set.UserID, set.K, set.PMark, set.PRemark, set.AlgorithmVersion,
	).Scan(&set.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, c := range set.Credentials {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO amnesia_credentials (set_id, idx, password_hash, marked) VALUES ($1, $2, $3, $4)`,
			set.ID, c.Index, c.PasswordHash, c.Marked)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) GetSet(ctx context.Context, userID string) (*models.CredentialSet, error) {
	return r.load(ctx, userID, "")
}

func (r *PostgresRepository) LockSet(ctx context.Context, userID string) (*models.CredentialSet, error) {
	return r.load(ctx, userID, " FOR UPDATE")
}

func (r *PostgresRepository) load(ctx context.Context, userID, suffix string) (*models.CredentialSet, error) {
	query :=
		`SELECT id, user_id, k, p_mark, p_remark, algorithm_version, created_at
		 FROM amnesia_sets WHERE user_id = $1` + suffix

	set := &models.CredentialSet{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&set.ID, &set.UserID, &set.K, &set.PMark, &set.PRemark, &set.AlgorithmVersion, &set.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, password_hash, marked FROM amnesia_credentials WHERE set_id = $1 ORDER BY idx`, set.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.Index, &c.PasswordHash, &c.Marked); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		set.Credentials = append(set.Credentials, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return set, nil
}

func (r *PostgresRepository) SetMarks(ctx context.Context, setID string, marks map[int]bool) error {
	indexes := make([]int, 0, len(marks))
	for i := range marks {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		res, err := r.db.ExecContext(ctx,
			`UPDATE amnesia_credentials SET marked = $3 WHERE set_id = $1 AND idx = $2`,
			setID, i, marks[i])
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return common.ErrorNotFound
		}
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM amnesia_sets WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
