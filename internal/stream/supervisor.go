package stream

import (
	"context"
	"log/slog"
	"time"

	"racebot/internal/infra"
	"racebot/internal/service"
)

const (
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
	// A session streaming at least this long counts as healthy and
	// resets the backoff to its floor.
	steadyPeriod = time.Minute
)

// Supervisor owns the lifetime of the single streaming session. It
// restarts the session on error with exponential backoff and forces a
// restart on a fixed schedule so the market filter tracks the current-race
// set. At most one session streams at a time: the old session is
// cancelled and awaited before a replacement starts.
type Supervisor struct {
	session      Session
	cache        *service.Cache
	consumer     Consumer
	restartEvery time.Duration
	metrics      *infra.Metrics
}

// NewSupervisor wires a session to its consumer under restart control.
func NewSupervisor(session Session, cache *service.Cache, consumer Consumer, restartEvery time.Duration, metrics *infra.Metrics) *Supervisor {
	return &Supervisor{
		session:      session,
		cache:        cache,
		consumer:     consumer,
		restartEvery: restartEvery,
		metrics:      metrics,
	}
}

// Run loops connect/stream/restart until ctx is cancelled. Connectivity
// faults, auth failures included, are retried indefinitely.
func (s *Supervisor) Run(ctx context.Context) {
	delay := baseBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		marketIDs := s.cache.CurrentRaceIDs()
		slog.Info("starting streaming session", slog.Int("markets", len(marketIDs)))
		if s.metrics != nil {
			s.metrics.RecordReconnect()
		}

		sessCtx, cancel := context.WithCancel(ctx)
		started := time.Now()
		done := make(chan error, 1)
		go func() {
			done <- s.session.Run(sessCtx, marketIDs, s.consumer)
		}()

		restart := time.NewTimer(s.restartEvery)
		select {
		case err := <-done:
			restart.Stop()
			cancel()
			if ctx.Err() != nil {
				return
			}
			if time.Since(started) >= steadyPeriod {
				delay = baseBackoff
			}
			slog.Warn("streaming session ended",
				slog.Any("error", err),
				slog.Duration("backoff", delay),
			)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}

		case <-restart.C:
			// Scheduled restart: stop the old session and wait for it to
			// terminate before the next one may touch the cache. The
			// cancellation error is expected and swallowed.
			slog.Info("scheduled stream restart, refreshing market filter")
			cancel()
			<-done
			delay = baseBackoff

		case <-ctx.Done():
			restart.Stop()
			cancel()
			<-done
			return
		}
	}
}

// sleepCtx sleeps for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
