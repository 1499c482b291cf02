package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestReplaceSet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	set := &models.CredentialSet{
		ID: "s-1", UserID: "u-1", K: 2, PMark: 0.1, PRemark: 0.01,
		AlgorithmVersion: models.AmnesiaAlgorithmV1,
		Credentials: []models.Credential{
			{Index: 0, PasswordHash: "h0", Marked: true},
			{Index: 1, PasswordHash: "h1", Marked: false},
		},
	}

	now := time.Now()
	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+amnesia_sets\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+amnesia_sets\s*\(id,\s*user_id,\s*k,\s*p_mark,\s*p_remark,\s*algorithm_version\).+RETURNING\s+created_at`).
		WithArgs("s-1", "u-1", 2, 0.1, 0.01, "amnesia_v1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec(`INSERT\s+INTO\s+amnesia_credentials`).
		WithArgs("s-1", 0, "h0", true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+amnesia_credentials`).
		WithArgs("s-1", 1, "h1", false).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReplaceSet(context.Background(), set))
	assert.True(t, set.CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSet_InsertFails(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+amnesia_sets`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT\s+INTO\s+amnesia_sets`).WillReturnError(errors.New("db down"))

	err := repo.ReplaceSet(context.Background(), &models.CredentialSet{UserID: "u-1", K: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func expectLoad(mock sqlmock.Sqlmock, selectRe string) {
	mock.ExpectQuery(selectRe).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "k", "p_mark", "p_remark", "algorithm_version", "created_at"}).
			AddRow("s-1", "u-1", 3, 0.1, 0.01, "amnesia_v1", time.Now()))
	mock.ExpectQuery(`(?s)^SELECT\s+idx,\s*password_hash,\s*marked\s+FROM\s+amnesia_credentials\s+WHERE\s+set_id\s*=\s*\$1\s+ORDER\s+BY\s+idx$`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"idx", "password_hash", "marked"}).
			AddRow(0, "h0", false).
			AddRow(1, "h1", true).
			AddRow(2, "h2", true))
}

func TestGetSet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expectLoad(mock, `(?s)^SELECT.+FROM\s+amnesia_sets\s+WHERE\s+user_id\s*=\s*\$1$`)

	set, err := repo.GetSet(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", set.ID)
	assert.Len(t, set.Credentials, 3)
	assert.Equal(t, 2, set.MarkedCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSet_UsesForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expectLoad(mock, `(?s)^SELECT.+FROM\s+amnesia_sets\s+WHERE\s+user_id\s*=\s*\$1\s+FOR\s+UPDATE$`)

	_, err := repo.LockSet(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+amnesia_sets`).WithArgs("u-1").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSet(context.Background(), "u-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetMarks_SortedUpdates(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+amnesia_credentials\s+SET\s+marked\s*=\s*\$3\s+WHERE\s+set_id\s*=\s*\$1\s+AND\s+idx\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs("s-1", 0, false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("s-1", 2, true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("s-1", 5, true).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetMarks(context.Background(), "s-1", map[int]bool{5: true, 2: true, 0: false})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
