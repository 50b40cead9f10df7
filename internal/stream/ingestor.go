package stream

import (
	"log/slog"
	"time"

	"racebot/internal/domain"
	"racebot/internal/infra"
	"racebot/internal/service"
)

// Ingestor applies raw market changes to the cache. Only the best level
// of each ladder is consumed; a missing field keeps the previous cached
// value (forward-fill).
type Ingestor struct {
	cache   *service.Cache
	metrics *infra.Metrics
}

// NewIngestor creates an ingestor writing into cache.
func NewIngestor(cache *service.Cache, metrics *infra.Metrics) *Ingestor {
	return &Ingestor{cache: cache, metrics: metrics}
}

// ApplyMarketChange implements Consumer. Events for markets outside the
// current-race set are dropped; unknown runners are inserted on demand.
func (in *Ingestor) ApplyMarketChange(mc *MarketChange) {
	if !in.cache.IsTracked(mc.MarketID) {
		slog.Debug("update for untracked market", slog.String("market_id", mc.MarketID))
		return
	}
	mb := in.cache.Market(mc.MarketID)
	if mb == nil {
		return
	}

	for _, rc := range mc.Runners {
		r := in.cache.EnsureRunner(mc.MarketID, rc.SelectionID)
		if r == nil {
			continue
		}
		in.applyRunnerChange(r, rc)
	}

	mb.RecomputeOverruns()
	if !mb.StartTime.IsZero() {
		mb.SecondsToStart = time.Until(mb.StartTime).Seconds()
	}

	if in.metrics != nil {
		in.metrics.RecordTick()
	}
	in.cache.Signal()
}

func (in *Ingestor) applyRunnerChange(r *domain.RunnerState, rc RunnerChange) {
	// Forward-fill: a field absent from the event retains the cached
	// scalar, and that retained value is what gets pushed.
	back := r.Back
	if len(rc.Back) > 0 {
		back = rc.Back[0].Price
	}
	lay := r.Lay
	if len(rc.Lay) > 0 {
		lay = rc.Lay[0].Price
	}
	last := r.Last
	if len(rc.Traded) > 0 {
		last = rc.Traded[0].Price
	}

	r.BackSeries.Push(back)
	r.LaySeries.Push(lay)
	r.LastSeries.Push(last)
	r.Back = back
	r.Lay = lay
	r.Last = last

	r.BackStat = summarize(r.BackSeries)
	r.LayStat = summarize(r.LaySeries)
	r.LastStat = summarize(r.LastSeries)

	if len(rc.Traded) > 0 {
		r.Volume += rc.Traded[0].Volume
	}

	if r.Name != "" {
		r.Info = in.cache.HorseInfo(r.Name)
	}
}

func summarize(s *domain.RollingStat) domain.StatSummary {
	avg, ok := s.Average()
	if !ok {
		return domain.StatSummary{}
	}
	min, _ := s.Min()
	max, _ := s.Max()
	return domain.StatSummary{Avg: avg, Min: min, Max: max}
}
