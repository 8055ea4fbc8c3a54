package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*HistoryRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepo(db), mock
}

func TestHistoryRepo_Record(t *testing.T) {
	repo, mock := newMock(t)

	e := &Entry{
		ChatID: 42,
		UserID: 7,
		Kind:   KindSolve,
		Shape:  "linear2",
		Input:  "10=2x+4",
		Result: "𝑥 = 3",
		Steps:  []string{"10 = 2𝑥 + 4", "𝑥 = 3"},

		Variables: map[string]float64{"y": 10, "m": 2, "b": 4},
	}
	steps, _ := json.Marshal(e.Steps)

	mock.ExpectExec("insert into solve_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(42), int64(7), "solve", "linear2", "10=2x+4", "𝑥 = 3", steps,
			[]byte(`{"b":4,"m":2,"y":10}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), e))
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_RecordNilStepsStoredAsEmptyArray(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("insert into solve_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), int64(0), "reduce", "", "2+2", "4", []byte("[]"), []byte("{}")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), &Entry{ChatID: 1, Kind: KindReduce, Input: "2+2", Result: "4"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_Recent(t *testing.T) {
	repo, mock := newMock(t)

	id := uuid.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "chat_id", "user_id", "kind", "shape", "input", "result", "steps"}).
		AddRow(id, now, int64(42), int64(7), "solve", "quadratic", "0=x^2-3x+2", "𝑥 = 1, 2", []byte(`["a","b"]`)).
		AddRow(uuid.New(), now.Add(-time.Minute), int64(42), int64(7), "reduce", "", "2+3*4", "14", []byte(`not json`))

	mock.ExpectQuery("select (.+) from solve_history").
		WithArgs(int64(42), 10).
		WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), 42, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, KindSolve, got[0].Kind)
	assert.Equal(t, []string{"a", "b"}, got[0].Steps)
	assert.Equal(t, KindReduce, got[1].Kind)
	assert.Nil(t, got[1].Steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_Last(t *testing.T) {
	repo, mock := newMock(t)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "created_at", "chat_id", "user_id", "kind", "shape", "input", "result", "steps", "variables"}).
		AddRow(id, time.Now(), int64(5), int64(7), "solve", "linear2", "10=2x+4", "𝑥 = 3", []byte(`["x"]`), []byte(`{"y":10,"m":2,"b":4}`))
	mock.ExpectQuery("select (.+) from solve_history").
		WithArgs(int64(5), "solve").
		WillReturnRows(rows)

	e, err := repo.Last(context.Background(), 5, KindSolve)
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "linear2", e.Shape)
	assert.Equal(t, map[string]float64{"y": 10, "m": 2, "b": 4}, e.Variables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_LastEmpty(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("select (.+) from solve_history").
		WithArgs(int64(5), "solve").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Last(context.Background(), 5, KindSolve)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_PurgeOlderThan(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("delete from solve_history").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.PurgeOlderThan(context.Background(), 0)
	assert.Error(t, err)
}

func TestHistoryRepo_NilIsDisabled(t *testing.T) {
	var repo *HistoryRepo
	ctx := context.Background()

	assert.NoError(t, repo.Record(ctx, &Entry{}))
	got, err := repo.Recent(ctx, 1, 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
	_, err = repo.Last(ctx, 1, KindSolve)
	assert.ErrorIs(t, err, ErrNotFound)
}
