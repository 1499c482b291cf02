package honeywords

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/cryptox"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/storage"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/randx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/dmitrijs2005/honeykeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = cryptox.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type fixedWords []string

func (f fixedWords) Honeywords(string, int) ([]string, error) {
	return append([]string(nil), f...), nil
}

// countingChecker records Set calls and can fail them.
type countingChecker struct {
	honeychecker.Checker
	sets   int
	setErr error
}

func (c *countingChecker) Set(ctx context.Context, userID string, idx int) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	return c.Checker.Set(ctx, userID, idx)
}

func intPtr(i int) *int { return &i }

func setup(t *testing.T, words fixedWords) (*Service, *countingChecker, *repomanager.MemoryRepositoryManager, string) {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	u, err := m.Users().Create(context.Background(), &models.User{UserName: "bob", PasswordHash: "$2a$legacy"})
	require.NoError(t, err)

	checker := &countingChecker{Checker: honeychecker.NewLocal(storage.NewMemory())}
	s := NewService(m, words, cryptox.NewArgon2Hasher(testParams), checker, randx.NewSeeded(1), logging.Discard())
	return s, checker, m, u.ID
}

func TestInitialize_SetsCheckerOnce(t *testing.T) {
	ctx := context.Background()
	s, checker, m, userID := setup(t, fixedWords{"pw", "p1", "p2", "p3"})

	require.NoError(t, s.Initialize(ctx, userID, "pw", 4, intPtr(2)))
	assert.Equal(t, 1, checker.sets)

	ok, err := checker.Verify(ctx, userID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	idx, err := s.MatchIndex(ctx, userID, "pw")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = s.MatchIndex(ctx, userID, "p1")
	require.NoError(t, err)
	assert.NotEqual(t, 2, idx)
	assert.NotEqual(t, NoMatch, idx)

	idx, _ = s.MatchIndex(ctx, userID, "other")
	assert.Equal(t, NoMatch, idx)

	u, _ := m.Users().GetByID(ctx, userID)
	assert.False(t, u.HasUsablePassword())
}

func TestInitialize_CheckerFailureAborts(t *testing.T) {
	ctx := context.Background()
	s, checker, m, userID := setup(t, fixedWords{"pw", "p1"})
	checker.setErr = common.ErrHoneycheckerUnavailable

	err := s.Initialize(ctx, userID, "pw", 2, nil)
	assert.True(t, errors.Is(err, common.ErrHoneycheckerUnavailable))
	assert.Equal(t, 1, checker.sets)

	u, err := m.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$legacy", u.PasswordHash)

	ok, err := m.HoneywordSets().Exists(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitialize_CheckerFailureKeepsPreviousSet(t *testing.T) {
	ctx := context.Background()
	s, checker, m, userID := setup(t, fixedWords{"pw", "p1"})
	require.NoError(t, s.Initialize(ctx, userID, "pw", 2, intPtr(1)))
	before, err := m.HoneywordSets().GetSet(ctx, userID)
	require.NoError(t, err)

	s.generator = fixedWords{"new", "n1", "n2"}
	checker.setErr = common.ErrHoneycheckerUnavailable
	err = s.Initialize(ctx, userID, "new", 3, nil)
	require.ErrorIs(t, err, common.ErrHoneycheckerUnavailable)

	after, err := m.HoneywordSets().GetSet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Hashes, after.Hashes)

	idx, err := s.MatchIndex(ctx, userID, "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

// commitAwareChecker reports whether every queued statement, including
// the commit, ran before Set was called.
type commitAwareChecker struct {
	honeychecker.Checker
	mock      sqlmock.Sqlmock
	pending   error
	called    bool
	setResult error
}

func (c *commitAwareChecker) Set(context.Context, string, int) error {
	c.called = true
	c.pending = c.mock.ExpectationsWereMet()
	return c.setResult
}

func newPostgresService(t *testing.T, checker *commitAwareChecker) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	checker.mock = mock

	m := repomanager.NewPostgresRepositoryManager(db)
	s := NewService(m, fixedWords{"pw", "p1"}, cryptox.NewArgon2Hasher(testParams), checker, randx.NewSeeded(1), logging.Discard())
	return s, mock
}

func expectInitializeWrites(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`(?s)SELECT.+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow("u-1", "bob", "$2a$legacy", time.Now()))
	mock.ExpectQuery(`(?s)SELECT.+FROM\s+honeyword_sets\s+WHERE\s+user_id`).WithArgs("u-1").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).WithArgs("u-1", cryptox.UnusablePassword).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+honeyword_sets`).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT\s+INTO\s+honeyword_sets`).WithArgs(sqlmock.AnyArg(), "u-1", 2, models.HoneywordAlgorithmV1).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT\s+INTO\s+honeyword_hashes`).WithArgs(sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+honeyword_hashes`).WithArgs(sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestInitialize_CheckerCalledAfterCommit(t *testing.T) {
	checker := &commitAwareChecker{}
	s, mock := newPostgresService(t, checker)
	expectInitializeWrites(mock)

	require.NoError(t, s.Initialize(context.Background(), "u-1", "pw", 2, intPtr(0)))
	require.True(t, checker.called)
	assert.NoError(t, checker.pending, "transaction must be committed before the honeychecker call")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitialize_CheckerFailureRestoresAfterCommit(t *testing.T) {
	checker := &commitAwareChecker{setResult: common.ErrHoneycheckerUnavailable}
	s, mock := newPostgresService(t, checker)
	expectInitializeWrites(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+honeyword_sets`).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).WithArgs("u-1", "$2a$legacy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Initialize(context.Background(), "u-1", "pw", 2, intPtr(0))
	require.ErrorIs(t, err, common.ErrHoneycheckerUnavailable)
	assert.NoError(t, checker.pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitialize_Validation(t *testing.T) {
	ctx := context.Background()
	s, checker, _, userID := setup(t, fixedWords{"pw", "p1"})

	assert.ErrorIs(t, s.Initialize(ctx, userID, "pw", 1, nil), common.ErrInvalidArgument)
	assert.ErrorIs(t, s.Initialize(ctx, userID, "pw", 2, intPtr(2)), common.ErrInvalidArgument)
	assert.ErrorIs(t, s.Initialize(ctx, userID, "pw", 3, nil), common.ErrInvalidArgument)
	assert.ErrorIs(t, s.Initialize(ctx, userID, "nope", 2, nil), common.ErrInvalidArgument)
	assert.Equal(t, 0, checker.sets)
}

func TestMatchIndex_NoSet(t *testing.T) {
	s, _, _, _ := setup(t, fixedWords{})
	idx, err := s.MatchIndex(context.Background(), "u-x", "pw")
	require.NoError(t, err)
	assert.Equal(t, NoMatch, idx)
}

func TestMatchIndex_SkipsHashWithBadParameters(t *testing.T) {
	ctx := context.Background()
	s, _, m, userID := setup(t, fixedWords{})

	good, err := cryptox.NewArgon2Hasher(testParams).Hash("pw")
	require.NoError(t, err)
	require.NoError(t, m.HoneywordSets().ReplaceSet(ctx, &models.HoneywordSet{
		UserID: userID, K: 2, AlgorithmVersion: models.HoneywordAlgorithmV1,
		Hashes: []models.HoneywordHash{
			{Index: 0, PasswordHash: "$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5"},
			{Index: 1, PasswordHash: good},
		},
	}))

	idx, err := s.MatchIndex(ctx, userID, "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}
