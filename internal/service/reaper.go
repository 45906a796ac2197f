package service

import (
	"context"
	"time"

	"webhook-tester/internal/core/ports"

	"github.com/rs/zerolog"
)

// Reaper bounds storage growth: on a fixed interval it deletes requests past
// the retention window, then endpoints past their expiry, both in bounded
// batches. It is purely a space-reclamation mechanism — liveness checks never
// depend on it, since every read already applies the expiry predicate.
type Reaper struct {
	endpoints  ports.EndpointRepository
	requests   ports.RequestRepository
	requestTTL time.Duration
	interval   time.Duration
	batchSize  int
	log        zerolog.Logger
}

// NewReaper creates a Reaper. batchSize bounds each delete statement; its
// exact value only trades lock duration against cycle progress.
func NewReaper(
	endpoints ports.EndpointRepository,
	requests ports.RequestRepository,
	requestTTL time.Duration,
	interval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *Reaper {
	return &Reaper{
		endpoints:  endpoints,
		requests:   requests,
		requestTTL: requestTTL,
		interval:   interval,
		batchSize:  batchSize,
		log:        log.With().Str("component", "reaper").Logger(),
	}
}

// Run executes cleanup cycles until ctx is cancelled. A failed cycle is
// logged and retried on the next tick; it never terminates the loop.
// Cancellation interrupts the wait promptly and is a clean stop.
func (r *Reaper) Run(ctx context.Context) {
	r.log.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Dur("request_ttl", r.requestTTL).
		Msg("TTL reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("TTL reaper stopped")
			return
		case <-ticker.C:
			deletedRequests, deletedEndpoints, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					r.log.Info().Msg("TTL reaper stopped")
					return
				}
				r.log.Error().Err(err).Msg("TTL cleanup cycle failed")
				continue
			}
			if deletedRequests > 0 || deletedEndpoints > 0 {
				r.log.Info().
					Int64("requests", deletedRequests).
					Int64("endpoints", deletedEndpoints).
					Msg("TTL cleanup removed expired rows")
			}
		}
	}
}

// RunOnce performs a single cleanup cycle: expired requests first, then
// expired endpoints (whose remaining requests go via the cascade). Batches
// repeat until one comes back short of batchSize. Iterations per cycle are
// deliberately unbounded: a backlog is cleared before the next sleep, and
// batchSize alone bounds each statement's transaction footprint.
func (r *Reaper) RunOnce(ctx context.Context) (deletedRequests, deletedEndpoints int64, err error) {
	deletedRequests, err = r.deleteInBatches(ctx, func(ctx context.Context) (int64, error) {
		return r.requests.DeleteOlderThanBatch(ctx, r.requestTTL, r.batchSize)
	})
	if err != nil {
		return deletedRequests, 0, err
	}

	deletedEndpoints, err = r.deleteInBatches(ctx, func(ctx context.Context) (int64, error) {
		return r.endpoints.DeleteExpiredBatch(ctx, r.batchSize)
	})
	return deletedRequests, deletedEndpoints, err
}

// deleteInBatches repeats fn until it deletes fewer rows than batchSize,
// accumulating the total. Deletes are idempotent, so a cycle interrupted
// between batches leaves nothing double-counted on the next run.
func (r *Reaper) deleteInBatches(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := fn(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(r.batchSize) {
			return total, nil
		}
	}
}
