package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"racebot/internal/domain"
	"racebot/internal/infra"
	"racebot/internal/service"
)

// Engine evaluates every active strategy against the cache on a fixed
// cadence and emits at most one order per (strategy, runner). Rejections
// at any step are recorded as diagnostics against the market or runner.
type Engine struct {
	cache    *service.Cache
	gateway  domain.OrderGateway
	store    domain.OrderStore
	interval time.Duration
	// live gates real submission: only "on" strategies running on an
	// authorized host ever reach the gateway.
	live    bool
	metrics *infra.Metrics
}

// New creates an engine. live should be true only on the authorized
// production host; everywhere else "on" strategies degrade to dummy.
func New(cache *service.Cache, gateway domain.OrderGateway, store domain.OrderStore, interval time.Duration, live bool, metrics *infra.Metrics) *Engine {
	return &Engine{
		cache:    cache,
		gateway:  gateway,
		store:    store,
		interval: interval,
		live:     live,
		metrics:  metrics,
	}
}

// Run evaluates strategies in a loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.Pass(ctx)
		if !sleepCtx(ctx, e.interval) {
			return
		}
	}
}

// Pass snapshots the cache and evaluates every active strategy against
// every market. A fault in one (strategy, market) cell never aborts the
// others.
func (e *Engine) Pass(ctx context.Context) {
	markets := e.cache.SnapshotMarkets()
	strategies := e.cache.SnapshotStrategies()

	for _, strat := range strategies {
		if !strat.IsActive() {
			continue
		}
		for _, mb := range markets {
			e.evaluateSafe(ctx, strat, mb)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordPass()
	}
}

func (e *Engine) evaluateSafe(ctx context.Context, strat *domain.Strategy, mb *domain.MarketBook) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy evaluation panic",
				slog.String("strategy", strat.Name),
				slog.String("market_id", mb.MarketID),
				slog.Any("panic", r),
			)
			e.reject(mb, strat, fmt.Sprintf("evaluation fault: %v", r))
		}
	}()
	e.evaluate(ctx, strat, mb)
}

func (e *Engine) evaluate(ctx context.Context, strat *domain.Strategy, mb *domain.MarketBook) {
	placed := mb.OrderCount(strat.Name)
	if strat.MaxRunners > 0 && placed >= strat.MaxRunners {
		return
	}

	if reason := e.marketFilter(strat, mb); reason != "" {
		e.reject(mb, strat, reason)
		return
	}

	// Only the top MaxRunners ranked runners are candidates. A candidate
	// rejected by conditions is not replaced by a lower-ranked runner.
	candidates := e.rankRunners(strat, mb)
	if strat.MaxRunners > 0 && len(candidates) > strat.MaxRunners {
		candidates = candidates[:strat.MaxRunners]
	}
	for _, r := range candidates {
		if strat.MaxRunners > 0 && placed >= strat.MaxRunners {
			break
		}
		if mb.HasOrderFor(r.SelectionID) {
			r.Note = "order already exists for runner"
			continue
		}
		if reason := e.checkConditions(strat, r); reason != "" {
			r.Note = reason
			continue
		}
		if e.placeOrder(ctx, strat, mb, r) {
			placed++
		}
	}
}

// marketFilter runs the short-circuit eligibility chain; an empty string
// means the market is eligible.
func (e *Engine) marketFilter(strat *domain.Strategy, mb *domain.MarketBook) string {
	if mb.StartTime.IsZero() {
		return "start time unknown"
	}
	if !strat.AllowsCountry(mb.Meta.Country) {
		return "country " + mb.Meta.Country + " not selected"
	}
	if strat.EventType != "" && strat.EventType != mb.Meta.EventType {
		return "event type mismatch"
	}
	if strat.MarketType != "" && strat.MarketType != mb.Meta.MarketType {
		return "market type mismatch"
	}
	if strat.RaceType != domain.RaceTypeAny {
		harness := isHarness(mb.Meta.EventTitle)
		if strat.RaceType == domain.RaceTypeHarness && !harness {
			return "not a harness race"
		}
		if strat.RaceType != domain.RaceTypeHarness && harness {
			return "harness race excluded"
		}
	}
	tts := mb.SecondsToStart
	if tts < strat.TimeToStartMin || tts > strat.TimeToStartMax {
		return fmt.Sprintf("outside start window (%.0fs)", tts)
	}
	if !strat.BackOverrun.Matches(mb.BackOverrun) {
		return fmt.Sprintf("back overrun %.3f outside bounds", mb.BackOverrun)
	}
	if !strat.LayOverrun.Matches(mb.LayOverrun) {
		return fmt.Sprintf("lay overrun %.3f outside bounds", mb.LayOverrun)
	}
	if !strat.LastOverrun.Matches(mb.LastOverrun) {
		return fmt.Sprintf("last overrun %.3f outside bounds", mb.LastOverrun)
	}
	return ""
}

// isHarness applies the venue-title heuristic: trotting and pacing races
// carry "trot" or "pace" in the event title.
func isHarness(eventTitle string) bool {
	title := strings.ToLower(eventTitle)
	return strings.Contains(title, "trot") || strings.Contains(title, "pace")
}

// rankRunners orders runners by the strategy's selected price field.
// Runners without an observed price are excluded.
func (e *Engine) rankRunners(strat *domain.Strategy, mb *domain.MarketBook) []*domain.RunnerState {
	runners := make([]*domain.RunnerState, 0, len(mb.Runners))
	for _, r := range mb.Runners {
		if r.PriceField(strat.PriceStrategy) > 0 {
			runners = append(runners, r)
		}
	}
	sort.Slice(runners, func(i, j int) bool {
		pi := runners[i].PriceField(strat.PriceStrategy)
		pj := runners[j].PriceField(strat.PriceStrategy)
		if strat.RankDesc {
			return pi > pj
		}
		return pi < pj
	})
	return runners
}

// checkConditions matches every named range against the runner's
// enrichment record; empty string means accepted.
func (e *Engine) checkConditions(strat *domain.Strategy, r *domain.RunnerState) string {
	for name, cond := range strat.Conditions {
		raw, ok := r.Info[name]
		if !ok {
			if strat.MissingInfo == domain.MissingInfoRisk {
				continue
			}
			return "missing info: " + name
		}
		v, err := domain.ParseLenientNumber(raw)
		if err != nil {
			return fmt.Sprintf("unparsable %s: %q", name, raw)
		}
		if !cond.Matches(v) {
			return fmt.Sprintf("%s=%.2f outside range", name, v)
		}
	}
	return ""
}

// placeOrder prices, submits and records one order. Gateway failures are
// captured in the persisted order status, never retried here.
func (e *Engine) placeOrder(ctx context.Context, strat *domain.Strategy, mb *domain.MarketBook, r *domain.RunnerState) bool {
	raw := ClampPrice(r.PriceField(strat.PriceStrategy), strat.PriceMin, strat.PriceMax)
	price, err := AdjustPrice(decimal.NewFromFloat(raw))
	if err != nil {
		r.Note = "price outside exchange ladder"
		return false
	}

	order := &domain.Order{
		ID:             uuid.NewString(),
		StrategyName:   strat.Name,
		MarketID:       mb.MarketID,
		SelectionID:    r.SelectionID,
		RunnerName:     r.Name,
		Side:           strat.Side,
		Size:           strat.Size,
		Price:          price,
		Persistence:    strat.Persistence,
		Venue:          mb.Meta.Venue,
		MarketName:     mb.Meta.MarketName,
		SecondsToStart: mb.SecondsToStart,
		PlacedAt:       time.Now().UTC(),
	}

	if strat.Active == domain.StrategyOn && e.live {
		report, err := e.gateway.PlaceOrder(ctx, order)
		if err != nil {
			slog.Error("order submission failed",
				slog.String("strategy", strat.Name),
				slog.String("market_id", mb.MarketID),
				slog.Any("error", err),
			)
			order.Status = domain.OrderStatusFailure
		} else {
			order.Status = report.Status
			order.BetID = report.BetID
			order.MatchedPrice = decimal.NewFromFloat(report.MatchedPrice)
		}
	} else {
		order.Status = domain.OrderStatusDummy
	}

	e.cache.AppendOrder(order)
	if e.store != nil {
		if err := e.store.SaveOrder(order); err != nil {
			slog.Error("order persistence failed", slog.Any("error", err))
		}
	}
	if e.metrics != nil {
		e.metrics.RecordOrder()
	}
	r.Note = "order placed"
	slog.Info("order placed",
		slog.String("strategy", strat.Name),
		slog.String("market_id", mb.MarketID),
		slog.String("selection_id", r.SelectionID),
		slog.String("side", order.Side),
		slog.String("price", price.String()),
		slog.String("status", order.Status),
	)
	return true
}

func (e *Engine) reject(mb *domain.MarketBook, strat *domain.Strategy, reason string) {
	e.cache.SetNote(mb.MarketID, strat.Name, reason)
	if e.metrics != nil {
		e.metrics.RecordRejection()
	}
}

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
