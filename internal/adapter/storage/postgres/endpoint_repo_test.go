package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint() *domain.Endpoint {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Endpoint{
		ID:        "abc123def4",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestEndpointRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)
	ep := newTestEndpoint()

	mock.ExpectExec("INSERT INTO endpoints").
		WithArgs(ep.ID, ep.CreatedAt, ep.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), ep)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_Create_DuplicateID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)
	ep := newTestEndpoint()

	mock.ExpectExec("INSERT INTO endpoints").
		WithArgs(ep.ID, ep.CreatedAt, ep.ExpiresAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), ep)
	assert.ErrorIs(t, err, ports.ErrDuplicateEndpointID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_Create_OtherError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)
	ep := newTestEndpoint()

	mock.ExpectExec("INSERT INTO endpoints").
		WithArgs(ep.ID, ep.CreatedAt, ep.ExpiresAt).
		WillReturnError(errors.New("connection reset"))

	err = repo.Create(context.Background(), ep)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrDuplicateEndpointID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_GetActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)
	ep := newTestEndpoint()

	mock.ExpectQuery("SELECT id, created_at, expires_at FROM endpoints WHERE id = .+ AND expires_at > now").
		WithArgs(ep.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "expires_at"}).
			AddRow(ep.ID, ep.CreatedAt, ep.ExpiresAt))

	result, err := repo.GetActive(context.Background(), ep.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, ep.ID, result.ID)
	assert.Equal(t, ep.ExpiresAt, result.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_GetActive_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)

	// Absent and expired endpoints are indistinguishable: zero rows either way.
	mock.ExpectQuery("SELECT id, created_at, expires_at FROM endpoints").
		WithArgs("gone123456").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "expires_at"}))

	result, err := repo.GetActive(context.Background(), "gone123456")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_DeleteExpiredBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)

	mock.ExpectExec("DELETE FROM endpoints WHERE id IN").
		WithArgs(500).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := repo.DeleteExpiredBatch(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndpointRepo_DeleteExpiredBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEndpointRepo(mock)

	mock.ExpectExec("DELETE FROM endpoints WHERE id IN").
		WithArgs(500).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.DeleteExpiredBatch(context.Background(), 500)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
