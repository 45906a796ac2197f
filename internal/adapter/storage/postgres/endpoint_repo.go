package postgres

import (
	"context"
	"errors"
	"fmt"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// EndpointRepo implements ports.EndpointRepository.
type EndpointRepo struct {
	pool Pool
}

// NewEndpointRepo creates a new EndpointRepo.
func NewEndpointRepo(pool Pool) *EndpointRepo {
	return &EndpointRepo{pool: pool}
}

// Create inserts a new endpoint. An ID collision maps to
// ports.ErrDuplicateEndpointID so the issuance service can retry.
func (r *EndpointRepo) Create(ctx context.Context, ep *domain.Endpoint) error {
	query := `INSERT INTO endpoints (id, created_at, expires_at) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, ep.ID, ep.CreatedAt, ep.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ports.ErrDuplicateEndpointID
		}
		return fmt.Errorf("insert endpoint: %w", err)
	}
	return nil
}

// GetActive fetches an endpoint only while it is unexpired. The expiry check
// is the live predicate now() < expires_at, never a cached flag: a row that
// physically persists past expiry is already invisible here.
func (r *EndpointRepo) GetActive(ctx context.Context, id string) (*domain.Endpoint, error) {
	query := `SELECT id, created_at, expires_at FROM endpoints WHERE id = $1 AND expires_at > now()`

	ep := &domain.Endpoint{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&ep.ID, &ep.CreatedAt, &ep.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active endpoint: %w", err)
	}
	return ep, nil
}

// DeleteExpiredBatch removes up to limit expired endpoints. Their requests go
// with them via the FK cascade.
func (r *EndpointRepo) DeleteExpiredBatch(ctx context.Context, limit int) (int64, error) {
	query := `DELETE FROM endpoints WHERE id IN (
		SELECT id FROM endpoints WHERE expires_at <= now() LIMIT $1)`

	tag, err := r.pool.Exec(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired endpoints: %w", err)
	}
	return tag.RowsAffected(), nil
}
