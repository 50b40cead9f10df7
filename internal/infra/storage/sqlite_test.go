package storage

import (
	"path/filepath"
	"testing"

	"racebot/internal/domain"

	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *Storage {
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return s
}

func TestSaveAndGetStrategy(t *testing.T) {
	s := setupTestDB(t)

	min := 30.0
	strat := &domain.Strategy{
		Name:           "fav-backer",
		Active:         domain.StrategyOn,
		Side:           domain.SideBack,
		Size:           decimal.NewFromInt(5),
		PriceStrategy:  domain.PriceFieldLast,
		MaxRunners:     1,
		Countries:      []string{"AU"},
		TimeToStartMin: min,
		TimeToStartMax: 120,
	}

	if err := s.SaveStrategy(strat); err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}

	fetched, err := s.GetStrategy("fav-backer")
	if err != nil {
		t.Fatalf("GetStrategy failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched strategy is nil")
	}
	if fetched.Side != domain.SideBack || fetched.MaxRunners != 1 {
		t.Errorf("round trip mismatch: %+v", fetched)
	}
	if !fetched.Size.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected size 5, got %v", fetched.Size)
	}
}

func TestStrategyMaxRunnersFloor(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveStrategy(&domain.Strategy{Name: "uncapped", Active: domain.StrategyOn}); err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}

	fetched, err := s.GetStrategy("uncapped")
	if err != nil {
		t.Fatalf("GetStrategy failed: %v", err)
	}
	if fetched.MaxRunners != 1 {
		t.Errorf("Expected MaxRunners floored at 1, got %d", fetched.MaxRunners)
	}

	active, err := s.ActiveStrategies()
	if err != nil {
		t.Fatalf("ActiveStrategies failed: %v", err)
	}
	if len(active) != 1 || active[0].MaxRunners != 1 {
		t.Errorf("Expected active strategy floored at 1, got %+v", active)
	}
}

func TestActiveStrategies(t *testing.T) {
	s := setupTestDB(t)

	s.SaveStrategy(&domain.Strategy{Name: "on", Active: domain.StrategyOn})
	s.SaveStrategy(&domain.Strategy{Name: "dummy", Active: domain.StrategyDummy})
	s.SaveStrategy(&domain.Strategy{Name: "off", Active: domain.StrategyOff})

	active, err := s.ActiveStrategies()
	if err != nil {
		t.Fatalf("ActiveStrategies failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active strategies, got %d", len(active))
	}
	for _, strat := range active {
		if strat.Active == domain.StrategyOff {
			t.Error("off strategy should not be returned")
		}
	}
}

func TestDeleteStrategy(t *testing.T) {
	s := setupTestDB(t)
	s.SaveStrategy(&domain.Strategy{Name: "gone", Active: domain.StrategyOff})

	if err := s.DeleteStrategy("gone"); err != nil {
		t.Fatalf("DeleteStrategy failed: %v", err)
	}

	fetched, err := s.GetStrategy("gone")
	if err != nil {
		t.Fatalf("GetStrategy after delete failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected strategy to be deleted, but found record")
	}
}

func TestSaveOrder(t *testing.T) {
	s := setupTestDB(t)

	order := &domain.Order{
		ID:           "ord-1",
		StrategyName: "fav-backer",
		MarketID:     "1.234",
		SelectionID:  "42",
		Side:         domain.SideBack,
		Size:         decimal.NewFromInt(5),
		Price:        decimal.NewFromFloat(3.05),
		Status:       domain.OrderStatusDummy,
	}

	if err := s.SaveOrder(order); err != nil {
		t.Fatalf("SaveOrder failed: %v", err)
	}

	orders, err := s.OrdersForMarket("1.234")
	if err != nil {
		t.Fatalf("OrdersForMarket failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].SelectionID != "42" {
		t.Errorf("expected selection 42, got %s", orders[0].SelectionID)
	}
}

func TestHorseInfoRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	records := map[string]map[string]string{
		"fast horse": {"W%": "23%", "Career": "12: 3-2-1"},
	}
	if err := s.UpsertHorseInfo(records); err != nil {
		t.Fatalf("UpsertHorseInfo failed: %v", err)
	}

	got, err := s.LookupRunners([]string{"fast horse", "unknown"})
	if err != nil {
		t.Fatalf("LookupRunners failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got["fast horse"]["W%"] != "23%" {
		t.Errorf("unexpected fields: %v", got["fast horse"])
	}
}
