package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/metrics"
	"github.com/poiesic/vitae/resilience"
	"github.com/poiesic/vitae/storage"
)

// storeGuard runs store calls with a per-attempt timeout, bounded retries
// and a circuit breaker shared by every call of one Retriever.
type storeGuard struct {
	breaker     *resilience.Breaker
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

func newStoreGuard(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *storeGuard {
	breaker := resilience.NewBreaker("segment-store",
		cfg.Resilience.BreakerFailures,
		cfg.Resilience.BreakerCooldown(),
		resilience.WithBreakerLogger(logger),
		resilience.WithStateListener(func(_, to resilience.State) {
			m.SetBreakerState(int(to))
		}),
	)
	m.SetBreakerState(metrics.BreakerClosed)

	return &storeGuard{
		breaker:     breaker,
		maxAttempts: cfg.Resilience.MaxAttempts,
		baseDelay:   cfg.Resilience.RetryBaseDelay(),
		timeout:     cfg.Retrieval.StoreTimeout(),
		logger:      logger.With("component", "store-guard"),
	}
}

// do runs fn until it succeeds, the attempts are exhausted, the breaker
// opens or ctx ends. Failures come back as *StoreError.
func (g *storeGuard) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts, err := resilience.RetryWithAttempts(ctx, func() error {
		err := g.breaker.Execute(func() error {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			err := fn(callCtx)
			if errors.Is(err, storage.ErrInvalidQuery) {
				return resilience.Permanent(err)
			}
			return err
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, resilience.ErrCircuitOpen) || ctx.Err() != nil {
			return resilience.Permanent(err)
		}
		g.logger.Warn("store call failed", "op", op, "err", err)
		return err
	}, g.maxAttempts, g.baseDelay)
	if err == nil {
		return nil
	}

	if errors.Is(err, storage.ErrInvalidQuery) {
		return errors.Join(ErrInvalidQuery, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return &StoreError{Op: op, Attempts: max(attempts, 1), Err: err}
}

func (g *storeGuard) state() resilience.State {
	return g.breaker.State()
}
