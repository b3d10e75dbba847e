package task

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "DeFi-Agent/internal/errors"
)

func newMockSQLStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewSQLStore(sqlx.NewDb(db, driver))
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	return store, mock
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "kind", "payload", "status", "attempts", "max_retries", "last_error", "error_code", "created_at", "updated_at"})
}

func TestSQLStoreCreateUsesDriverPlaceholders(t *testing.T) {
	store, mock := newMockSQLStore(t, "postgres")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs (" + jobColumns + ") VALUES ($1, $2, $3, $4, $5, $6, '', '', $7, $8)")).
		WithArgs("job-1", "chat.title", `{"chat_id":"c1"}`, "pending", 0, 3, int64(1700000000), int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &Task{ID: "job-1", Kind: "chat.title", Payload: map[string]any{"chat_id": "c1"}, MaxRetries: 3}
	require.NoError(t, store.Create(context.Background(), job))
	assert.Equal(t, StatusPending, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreCreateConflict(t *testing.T) {
	store, mock := newMockSQLStore(t, "mysql")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.Create(context.Background(), &Task{ID: "job-1", Kind: "k", MaxRetries: 1})
	assert.ErrorIs(t, err, ErrTaskConflict)
}

func TestSQLStoreGet(t *testing.T) {
	store, mock := newMockSQLStore(t, "mysql")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + jobColumns + " FROM jobs WHERE id = ?")).
		WithArgs("job-1").
		WillReturnRows(jobRows().AddRow("job-1", "chat.title", `{"text":"hi"}`, "failed", 1, 3, "boom", "failed:job", 10, 20))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + jobColumns + " FROM jobs WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(jobRows())

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", job.String("text"))
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "failed:job", job.ErrorCode)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreClaim(t *testing.T) {
	store, mock := newMockSQLStore(t, "mysql")
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = ?, attempts = attempts + 1")).
		WithArgs("running", int64(1700000000), "job-1", "pending", "failed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = ?")).
		WillReturnRows(jobRows().AddRow("job-1", "k", nil, "running", 1, 3, "", "", 10, 20))

	job, err := store.Claim(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempts)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = ?, attempts = attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = ?")).
		WillReturnRows(jobRows().AddRow("job-2", "k", nil, "failed", 3, 3, "boom", "failed:job", 10, 20))

	_, err = store.Claim(ctx, "job-2")
	assert.ErrorIs(t, err, ErrTaskExhausted)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = ?, attempts = attempts + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = ?")).
		WillReturnRows(jobRows().AddRow("job-3", "k", nil, "succeeded", 1, 3, "", "", 10, 20))

	_, err = store.Claim(ctx, "job-3")
	assert.ErrorIs(t, err, ErrTaskCompleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreMarkFailedTerminal(t *testing.T) {
	store, mock := newMockSQLStore(t, "postgres")
	mock.ExpectExec(regexp.QuoteMeta("attempts = CASE WHEN attempts < max_retries THEN max_retries ELSE attempts END WHERE id = $5")).
		WithArgs("failed", "bad payload", "invalid:job", int64(1700000000), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.MarkFailed(context.Background(), "job-1", xerrors.Code("invalid:job"), "bad payload", true))
	assert.ErrorIs(t, store.MarkSucceeded(context.Background(), "gone"), ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorePrune(t *testing.T) {
	store, mock := newMockSQLStore(t, "mysql")
	before := time.Unix(1600000000, 0)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jobs WHERE updated_at < ?")).
		WithArgs(before.Unix(), "succeeded", "failed").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.Prune(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
