package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, endpoint_id, method, path, query_string, received_at,
		status_code, ip, headers, content_type, body_size_bytes, raw_body, parsed_json`

// RequestRepo implements ports.RequestRepository.
type RequestRepo struct {
	pool Pool
}

// NewRequestRepo creates a new RequestRepo.
func NewRequestRepo(pool Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// InsertIfEndpointActive persists req conditioned on its endpoint being alive
// at write time. The INSERT ... SELECT makes the activity check and the write
// one atomic statement, so a concurrent expiry or reap cannot slip between a
// check and an insert. Zero rows means the endpoint was absent or expired.
func (r *RequestRepo) InsertIfEndpointActive(ctx context.Context, req *domain.WebhookRequest) (bool, error) {
	headersText, err := json.Marshal(req.Headers)
	if err != nil {
		return false, fmt.Errorf("marshal headers: %w", err)
	}

	var parsedJSON *string
	if req.ParsedJSON != nil {
		s := string(req.ParsedJSON)
		parsedJSON = &s
	}

	query := `INSERT INTO webhook_requests
		(id, endpoint_id, method, path, query_string, status_code, ip,
		 headers, content_type, body_size_bytes, raw_body, parsed_json)
		SELECT $1, e.id, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		FROM endpoints e WHERE e.id = $2 AND e.expires_at > now()
		RETURNING received_at`

	err = r.pool.QueryRow(ctx, query,
		req.ID, req.EndpointID, req.Method, req.Path, req.QueryString,
		req.StatusCode, req.IP, string(headersText), req.ContentType,
		req.BodySizeBytes, req.RawBody, parsedJSON,
	).Scan(&req.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert request: %w", err)
	}
	return true, nil
}

// GetByID fetches one captured request scoped to its endpoint.
func (r *RequestRepo) GetByID(ctx context.Context, endpointID string, id uuid.UUID) (*domain.WebhookRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_requests WHERE endpoint_id = $1 AND id = $2`, requestColumns)

	req, err := scanRequest(r.pool.QueryRow(ctx, query, endpointID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListPage fetches one keyset page in strict (received_at DESC, id DESC)
// order. The id tiebreak keeps the order deterministic when timestamps
// collide, which keyset resumption depends on.
func (r *RequestRepo) ListPage(ctx context.Context, endpointID string, params ports.RequestPageParams) ([]domain.WebhookRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if params.Before != nil {
		query := fmt.Sprintf(`SELECT %s FROM webhook_requests
			WHERE endpoint_id = $1
			  AND (received_at < $2 OR (received_at = $2 AND id < $3))
			ORDER BY received_at DESC, id DESC
			LIMIT $4`, requestColumns)
		rows, err = r.pool.Query(ctx, query, endpointID, params.Before.ReceivedAt, params.Before.ID, params.FetchLimit)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM webhook_requests
			WHERE endpoint_id = $1
			ORDER BY received_at DESC, id DESC
			LIMIT $2`, requestColumns)
		rows, err = r.pool.Query(ctx, query, endpointID, params.FetchLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var items []domain.WebhookRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request rows: %w", err)
	}
	return items, nil
}

// DeleteOlderThanBatch removes up to limit requests captured before now
// minus ttl. The bounded subquery keeps each statement's lock footprint small.
func (r *RequestRepo) DeleteOlderThanBatch(ctx context.Context, ttl time.Duration, limit int) (int64, error) {
	query := `DELETE FROM webhook_requests WHERE id IN (
		SELECT id FROM webhook_requests
		WHERE received_at < now() - make_interval(secs => $1)
		LIMIT $2)`

	tag, err := r.pool.Exec(ctx, query, ttl.Seconds(), limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanRequest is a helper to scan a single row into a WebhookRequest.
func scanRequest(row pgx.Row) (*domain.WebhookRequest, error) {
	req := &domain.WebhookRequest{}
	var headersText string
	var parsedJSON *string

	err := row.Scan(
		&req.ID, &req.EndpointID, &req.Method, &req.Path, &req.QueryString,
		&req.ReceivedAt, &req.StatusCode, &req.IP, &headersText,
		&req.ContentType, &req.BodySizeBytes, &req.RawBody, &parsedJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(headersText), &req.Headers); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	if parsedJSON != nil {
		req.ParsedJSON = json.RawMessage(*parsedJSON)
	}
	return req, nil
}
