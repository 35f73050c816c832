package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"flash-code/internal/infra/metrics"
)

// PoolStatsWorker periodically exports the pgx pool gauges.
type PoolStatsWorker struct {
	interval time.Duration
	pool     *pgxpool.Pool
	log      *zerolog.Logger
}

func NewPoolStatsWorker(interval time.Duration, pool *pgxpool.Pool, logger *zerolog.Logger) *PoolStatsWorker {
	wLog := logger.With().Str("component", "PoolStatsWorker").Logger()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PoolStatsWorker{
		interval: interval,
		pool:     pool,
		log:      &wLog,
	}
}

func (w *PoolStatsWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting pool stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pool stats worker")
			return ctx.Err()
		case <-ticker.C:
			st := w.pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
